package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/middleware"
	"easypos/internal/service"
)

type SessionHandler struct{ svc service.SessionService }

func NewSessionHandler(svc service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Open godoc
// @Summary Opens a cash session on a register
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening data"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/open [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := callerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RecordSale godoc
// @Summary Appends a sale entry to the session ledger
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RecordSaleRequest true "Sale entry"
// @Success 204
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/sales [post]
func (h *SessionHandler) RecordSale(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.svc.RecordSale(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordWithdrawal godoc
// @Summary Records a cash withdrawal from the drawer
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CashMovementRequest true "Withdrawal"
// @Success 204
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/withdrawals [post]
func (h *SessionHandler) RecordWithdrawal(c *gin.Context) {
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.svc.RecordWithdrawal(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordSupply godoc
// @Summary Records a cash supply into the drawer
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CashMovementRequest true "Supply"
// @Success 204
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/supplies [post]
func (h *SessionHandler) RecordSupply(c *gin.Context) {
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.svc.RecordSupply(c.Request.Context(), userID, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Close godoc
// @Summary Closes a session against the counted drawer amount
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CloseSessionRequest true "Counted declaration"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transfer godoc
// @Summary Marks a session as in transfer to another operator
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TransferSessionRequest true "Session"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/transfer [post]
func (h *SessionHandler) Transfer(c *gin.Context) {
	var req dto.TransferSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Transfer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receive godoc
// @Summary Accepts a transferred session under the caller's responsibility
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TransferSessionRequest true "Session"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/receive [post]
func (h *SessionHandler) Receive(c *gin.Context) {
	var req dto.TransferSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	receiverID, ok := callerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Receive(c.Request.Context(), receiverID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reopen godoc
// @Summary Reopens a closed session for correction (supervisor only)
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ReopenSessionRequest true "Justification"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/reopen [post]
func (h *SessionHandler) Reopen(c *gin.Context) {
	var req dto.ReopenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Reopen(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Active godoc
// @Summary Returns the caller's currently open session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/active [get]
func (h *SessionHandler) Active(c *gin.Context) {
	operatorID, ok := callerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Active(c.Request.Context(), operatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, &apierror.APIError{Kind: apierror.KindSessionNotFound, Detail: "no active session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary Returns the full report of one session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id}/report [get]
func (h *SessionHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid session id"})
		return
	}
	resp, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// callerID extracts the authenticated user's id from the JWT claims.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid user id in token"})
		return uuid.Nil, false
	}
	return id, true
}
