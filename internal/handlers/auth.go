package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/socialink/internal/auth"
	"github.com/charlesng35/socialink/internal/notify"
	"github.com/charlesng35/socialink/internal/services"
	"github.com/charlesng35/socialink/pkg/response"
)

const registrationEmailTask = "registration_email"

// AuthHandler manages registration, login and email confirmation.
type AuthHandler struct {
	users     *services.UserService
	gateway   *iauth.Gateway
	notifier  notify.Sender
	scheduler Scheduler
	publicURL string
}

func NewAuthHandler(users *services.UserService, gateway *iauth.Gateway, notifier notify.Sender, scheduler Scheduler, publicURL string) *AuthHandler {
	return &AuthHandler{
		users:     users,
		gateway:   gateway,
		notifier:  notifier,
		scheduler: scheduler,
		publicURL: publicURL,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,notblank,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.gateway.Tokens().IssueConfirmation(user.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	email := notify.RegistrationEmail(user.Email, externalURL(c, h.publicURL, "/confirm/"+url.PathEscape(token)))
	recipient := user.Email
	h.scheduler.Submit(registrationEmailTask, func(ctx context.Context) error {
		return notify.SendEmail(ctx, h.notifier, recipient, email)
	})

	response.Message(c, http.StatusCreated, "User created. Please confirm your email")
}

// POST /token
func (h *AuthHandler) Token(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.gateway.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// GET /confirm/:token
func (h *AuthHandler) Confirm(c *gin.Context) {
	if _, err := h.gateway.ConfirmEmail(requestContext(c), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "User confirmed")
}
