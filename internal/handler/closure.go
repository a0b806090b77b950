package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"easypos/internal/apierror"
	"easypos/internal/service"
)

type ClosureHandler struct{ svc service.ClosureService }

func NewClosureHandler(svc service.ClosureService) *ClosureHandler {
	return &ClosureHandler{svc: svc}
}

// Generate godoc
// @Summary Generates the closure document for a closed session
// @Description Idempotent per closure cycle — repeated calls return the
// @Description original document with the same number and hash.
// @Tags closures
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 201 {object} dto.ClosureDocumentResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/closures/{session_id} [post]
func (h *ClosureHandler) Generate(c *gin.Context) {
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Generate(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Fetch godoc
// @Summary Returns the closure document record for a session
// @Tags closures
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.ClosureDocumentResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/closures/{session_id} [get]
func (h *ClosureHandler) Fetch(c *gin.Context) {
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Fetch(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Download godoc
// @Summary Streams the closure PDF and bumps the download counter
// @Tags closures
// @Produce application/pdf
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/closures/{session_id}/download [get]
func (h *ClosureHandler) Download(c *gin.Context) {
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	data, doc, err := h.svc.Download(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("closure_%06d.pdf", doc.DocumentNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Verify godoc
// @Summary Re-hashes the stored artifact against the recorded digest
// @Tags closures
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.VerifyDocumentResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/closures/{session_id}/verify [get]
func (h *ClosureHandler) Verify(c *gin.Context) {
	sessionID, ok := pathSessionID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Verify(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func pathSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}
