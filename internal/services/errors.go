// Package services defines the business logic of the document registry:
// number allocation and reservations, document management, users, sign-in
// and the audit log. This file centralizes the service-level error values so
// that they can be returned consistently by service methods and checked by
// callers.
//
// Translation into user-facing messages and HTTP status codes is performed in
// the handler layer.
package services

import "errors"

// Allocation and document errors.
var (
	// ErrValidation marks bad input (count out of range, missing department,
	// unknown document type). Service methods wrap it with a readable reason,
	// so callers should test with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrNumberConflict is returned when a freshly computed number turned out
	// to be taken by a concurrent writer and every retry was used up. The
	// client may retry.
	ErrNumberConflict = errors.New("number allocation conflict")

	// ErrNumberExhausted is returned when the highest number in use is the
	// largest one the allocator can issue.
	ErrNumberExhausted = errors.New("no more numbers can be allocated")

	// ErrDuplicateNumber is returned when a document is registered under a
	// number that another document already holds.
	ErrDuplicateNumber = errors.New("document number already registered")

	// ErrForbiddenNumber is returned when the number is reserved by a
	// department other than the caller's.
	ErrForbiddenNumber = errors.New("number is reserved by another department")

	// ErrReservationNotFound indicates that the reservation id does not exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrDocumentNotFound indicates that the document id does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// User and authentication errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSelfDelete is returned when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("cannot delete the current user")

	// ErrUserInUse is returned when deleting a user who still owns registered
	// documents.
	ErrUserInUse = errors.New("user owns registered documents")
)
