package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/services"
)

// CreateUserRequest is an admin-created account. Role defaults to "user".
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required" example:"Jane Doe"`
	Email      string `json:"email" binding:"required" example:"jane@example.com"`
	Password   string `json:"password" binding:"required" example:"s3cret-pass"`
	Role       string `json:"role" example:"user"`
	Department string `json:"department" binding:"required" example:"Finance"`
}

// UpdateUserRequest edits an account. Empty fields keep their value.
type UpdateUserRequest struct {
	Name       string `json:"name" example:"Jane Doe"`
	Email      string `json:"email" example:"jane@example.com"`
	Role       string `json:"role" example:"admin"`
	Department string `json:"department" example:"Legal"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateUserRequest  true  "Account"
// @Success     201   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, password and department are required")
		return
	}
	u, err := h.users.Create(c.Request.Context(), services.NewUser{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       domain.Role(req.Role),
		Department: req.Department,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), caller(c), fmt.Sprintf("Created user %s", u.Email))
	ok(c, http.StatusCreated, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   domain.User
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	us, err := h.users.List(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, us)
}

// Profile godoc
// @ID          profile
// @Summary     My profile
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /users/profile [get]
func (h *Handlers) Profile(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), caller(c).ID)
	if err != nil {
		failWith(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Edit a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                      true  "User ID"
// @Param       body  body      handlers.UpdateUserRequest  true  "Changes"
// @Success     200   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /users/{id} [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.Update(c.Request.Context(), c.Param("id"), services.UserUpdate{
		Name:       req.Name,
		Email:      req.Email,
		Role:       domain.Role(req.Role),
		Department: req.Department,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), caller(c), fmt.Sprintf("Updated user %s", u.Email))
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Description Refused for the caller's own account and for users that own documents.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "User ID"
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	me := caller(c)
	u, err := h.users.Delete(c.Request.Context(), me, c.Param("id"))
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), me, fmt.Sprintf("Deleted user %s", u.Email))
	ok(c, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change my password
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ChangePasswordRequest  true  "Passwords"
// @Success     200   {object}  handlers.MessageResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse  "Current password is wrong"
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /users/change-password [put]
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "currentPassword and newPassword are required")
		return
	}
	me := caller(c)
	if err := h.users.ChangePassword(c.Request.Context(), me.ID, req.CurrentPassword, req.NewPassword); err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), me, "Password changed")
	ok(c, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}
