// Package handlers – error codes and service error translation.
//
// Every error response carries one of the codes below. Clients branch on the
// code; the message is for humans.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden_number",
//	  "message": "number is reserved by another department"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/services"
)

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeInternal           = "internal_error"
	ErrCodeMethodNotAllowed   = "method_not_allowed"

	// Idempotency:
	ErrCodeIdempotencyInProgress = "idempotency_in_progress"

	// Numbering:
	ErrCodeNumberConflict  = "number_conflict"
	ErrCodeNumberExhausted = "number_exhausted"
	ErrCodeDuplicateNumber = "duplicate_number"
	ErrCodeForbiddenNumber = "forbidden_number"

	// Accounts:
	ErrCodeEmailTaken = "email_taken"
	ErrCodeSelfDelete = "self_delete"
	ErrCodeUserInUse  = "user_in_use"
)

// serviceErrors maps service sentinels to status and code. The sentinel's
// own message (or the wrapped validation reason) is sent to the client.
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrValidation, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNumberConflict, http.StatusConflict, ErrCodeNumberConflict},
	{services.ErrNumberExhausted, http.StatusConflict, ErrCodeNumberExhausted},
	{services.ErrDuplicateNumber, http.StatusConflict, ErrCodeDuplicateNumber},
	{services.ErrForbiddenNumber, http.StatusForbidden, ErrCodeForbiddenNumber},
	{services.ErrReservationNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrDocumentNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeInvalidCredentials},
	{services.ErrEmailTaken, http.StatusConflict, ErrCodeEmailTaken},
	{services.ErrSelfDelete, http.StatusBadRequest, ErrCodeSelfDelete},
	{services.ErrUserInUse, http.StatusConflict, ErrCodeUserInUse},
}

// failWith translates err into the error envelope. Unknown errors are
// storage or programming faults: they are logged with the request context
// and answered with a generic 500.
func failWith(c *gin.Context, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}
