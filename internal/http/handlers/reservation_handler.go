// Reservation HTTP handlers.
//
//   - POST   /documents/reserve                (reserve 1..N numbers, idempotent)
//   - GET    /documents/reserve                (department's open reservations)
//   - GET    /documents/my-reservations        (caller's reservations)
//   - GET    /documents/reserved-numbers       (admin: all, others: own)
//   - DELETE /documents/reserved-numbers/{id}  (admin)
//   - POST   /documents/generate-number        (preview the next number)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/services"
)

// ReserveRequest asks for Count consecutive numbers of one type.
type ReserveRequest struct {
	// Type is IN or OUT.
	Type string `json:"type" binding:"required" example:"IN"`
	// Count defaults to 1; the upper bound is configurable (50 by default).
	Count *int `json:"count" example:"3"`
}

// GenerateNumberRequest optionally names the type the number is meant for.
type GenerateNumberRequest struct {
	Type string `json:"type" example:"OUT"`
}

// GenerateNumberResponse carries a candidate number. It is not reserved.
type GenerateNumberResponse struct {
	Number string `json:"number" example:"0043"`
	Type   string `json:"type,omitempty" example:"OUT"`
}

func parseType(s string) domain.DocumentType {
	return domain.DocumentType(strings.ToUpper(strings.TrimSpace(s)))
}

// Reserve godoc
// @ID          reserveNumbers
// @Summary     Reserve document numbers
// @Description Reserves count consecutive numbers for the caller's department.
// @Description Numbers persisted before a failure stay reserved. Supports Idempotency-Key.
// @Tags        Reservations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                   false  "Key for safe retries"
// @Param       body             body    handlers.ReserveRequest  true   "Type and count"
// @Success     201  {array}   services.ReservationView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid type, count or department"
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Allocation conflict or Idempotency-Key in progress, retry"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/reserve [post]
func (h *Handlers) Reserve(c *gin.Context) {
	done, handled := h.beginIdempotent(c)
	if handled {
		return
	}
	defer done()

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type is required")
		return
	}
	count := 1
	if req.Count != nil {
		count = *req.Count
	}

	me := caller(c)
	views, err := h.alloc.Reserve(c.Request.Context(), me, parseType(req.Type), count)
	if err != nil {
		failWith(c, err)
		return
	}

	numbers := make([]string, 0, len(views))
	for _, v := range views {
		numbers = append(numbers, v.Number)
	}
	h.audit.LogDocument(c.Request.Context(), me,
		fmt.Sprintf("Reserved %d %s number(s): %s", len(views), parseType(req.Type), strings.Join(numbers, ", ")))

	h.okRemembered(c, http.StatusCreated, views)
}

// DepartmentReservations godoc
// @ID          listDepartmentReservations
// @Summary     Open reservations of my department
// @Tags        Reservations
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   services.ReservationView
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/reserve [get]
func (h *Handlers) DepartmentReservations(c *gin.Context) {
	h.listReservations(c, services.ScopeDepartment)
}

// MyReservations godoc
// @ID          listMyReservations
// @Summary     My reservations
// @Tags        Reservations
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   services.ReservationView
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/my-reservations [get]
func (h *Handlers) MyReservations(c *gin.Context) {
	h.listReservations(c, services.ScopeOwner)
}

// ReservedNumbers godoc
// @ID          listReservedNumbers
// @Summary     Reserved numbers
// @Description Admins see every reservation, other users their own.
// @Tags        Reservations
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   services.ReservationView
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/reserved-numbers [get]
func (h *Handlers) ReservedNumbers(c *gin.Context) {
	h.listReservations(c, services.ScopeAll)
}

func (h *Handlers) listReservations(c *gin.Context, scope services.ReservationScope) {
	views, err := h.alloc.ListReservations(c.Request.Context(), caller(c), scope)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, views)
}

// DeleteReservation godoc
// @ID          deleteReservation
// @Summary     Release a reserved number
// @Tags        Reservations
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Reservation ID"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /documents/reserved-numbers/{id} [delete]
func (h *Handlers) DeleteReservation(c *gin.Context) {
	v, err := h.alloc.DeleteReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogDocument(c.Request.Context(), caller(c), fmt.Sprintf("Deleted reserved number %s", v.Number))
	ok(c, http.StatusOK, MessageResponse{Message: "Reserved number deleted successfully"})
}

// GenerateNumber godoc
// @ID          generateNumber
// @Summary     Preview the next number
// @Description Returns the next free number without reserving it.
// @Tags        Reservations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.GenerateNumberRequest  false  "Optional type"
// @Success     200   {object}  handlers.GenerateNumberResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /documents/generate-number [post]
func (h *Handlers) GenerateNumber(c *gin.Context) {
	var req GenerateNumberRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	typ := parseType(req.Type)
	n, err := h.alloc.GenerateNumber(c.Request.Context(), typ)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, GenerateNumberResponse{Number: n, Type: string(typ)})
}
