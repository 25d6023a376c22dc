package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/http/middleware"
	"github.com/tbourn/go-docregistry-backend/internal/services"
)

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// SessionUser is the user summary returned with a token.
type SessionUser struct {
	ID         string      `json:"id"`
	Name       string      `json:"name" example:"Jane Doe"`
	Email      string      `json:"email" example:"jane@example.com"`
	Department string      `json:"department" example:"Finance"`
	Role       domain.Role `json:"role" example:"user"`
}

// LoginResponse carries the bearer token and who it belongs to.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      SessionUser `json:"user"`
}

// RegisterRequest creates a regular account.
type RegisterRequest struct {
	Name       string `json:"name" binding:"required" example:"Jane Doe"`
	Email      string `json:"email" binding:"required" example:"jane@example.com"`
	Password   string `json:"password" binding:"required" example:"s3cret-pass"`
	Department string `json:"department" binding:"required" example:"Finance"`
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     429   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}
	s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), domain.IdentityOf(*s.User), "User logged in")
	ok(c, http.StatusOK, LoginResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User: SessionUser{
			ID:         s.User.ID,
			Name:       s.User.Name,
			Email:      s.User.Email,
			Department: s.User.Department,
			Role:       s.User.Role,
		},
	})
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account"
// @Success     201   {object}  handlers.MessageResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, password and department are required")
		return
	}
	u, err := h.auth.Register(c.Request.Context(), services.NewUser{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), domain.IdentityOf(*u), "User registered")
	ok(c, http.StatusCreated, MessageResponse{Message: "User created successfully"})
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Description Revokes the presented token when Redis is configured.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MessageResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		failWith(c, err)
		return
	}
	h.audit.LogAuth(c.Request.Context(), caller(c), "User logged out")
	ok(c, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
