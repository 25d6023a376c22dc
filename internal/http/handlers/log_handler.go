package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/services"
	"github.com/tbourn/go-docregistry-backend/internal/utils"
)

// AddLogRequest is a client-reported audit entry.
type AddLogRequest struct {
	Action string `json:"action" binding:"required" example:"Printed document #0042"`
	// Type is document, auth or system; empty means system.
	Type string `json:"type" example:"document"`
}

// AddLogResponse wraps the stored entry.
type AddLogResponse struct {
	Success bool                `json:"success" example:"true"`
	Log     services.AuditEntry `json:"log"`
}

// ListLogs godoc
// @ID          listLogs
// @Summary     Audit log
// @Tags        Logs
// @Produce     json
// @Security    BearerAuth
// @Param       limit  query     int  false  "Max entries (default 100)"
// @Success     200    {array}   services.AuditEntry
// @Failure     403    {object}  handlers.ErrorResponse
// @Failure     500    {object}  handlers.ErrorResponse
// @Router      /logs [get]
func (h *Handlers) ListLogs(c *gin.Context) {
	limit := utils.Limit(c.Query("limit"), services.DefaultLogsLimit, h.logsMax)
	entries, err := h.audit.List(c.Request.Context(), limit)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

// AddLog godoc
// @ID          addLog
// @Summary     Append an audit entry
// @Tags        Logs
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.AddLogRequest  true  "Entry"
// @Success     201   {object}  handlers.AddLogResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /logs/add [post]
func (h *Handlers) AddLog(c *gin.Context) {
	var req AddLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action is required")
		return
	}
	e, err := h.audit.Add(c.Request.Context(), caller(c), domain.LogType(req.Type), req.Action)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusCreated, AddLogResponse{Success: true, Log: *e})
}
