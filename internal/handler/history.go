package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/service"
)

type HistoryHandler struct{ svc service.HistoryService }

func NewHistoryHandler(svc service.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// List godoc
// @Summary Lists closed sessions with reconciliation summaries
// @Tags history
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (RFC3339)"
// @Param to query string false "Range end (RFC3339)"
// @Param operator_id query string false "Filter by operator"
// @Param register_id query string false "Filter by register"
// @Param classification query string false "Filter by tier (normal|warning|alert)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} dto.HistoryPage
// @Failure 400 {object} apierror.APIError
// @Router /v1/closures/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	filter := dto.HistoryFilter{}

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid from date, expected RFC3339"})
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid to date, expected RFC3339"})
			return
		}
		filter.To = &t
	}
	if v := c.Query("operator_id"); v != "" {
		filter.OperatorID = &v
	}
	if v := c.Query("register_id"); v != "" {
		filter.RegisterID = &v
	}
	if v := c.Query("classification"); v != "" {
		filter.Classification = &v
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Details godoc
// @Summary Full reconstruction of one closed session
// @Tags history
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.ClosureDetails
// @Failure 404 {object} apierror.APIError
// @Router /v1/closures/history/{session_id} [get]
func (h *HistoryHandler) Details(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid session id"})
		return
	}
	resp, err := h.svc.Details(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
