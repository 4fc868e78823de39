package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
)

type authService interface {
	Login(ctx context.Context, params application.LoginParams) (application.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (application.TokenPair, error)
}

type registrar interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
}

// AuthHandler serves self registration and token issuance.
type AuthHandler struct {
	service   authService
	users     registrar
	responder responder
	logger    *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service authService, users registrar, logger *zap.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, users: users, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(r *http.Request, operation string, fields ...zap.Field) *zap.Logger {
	return handlerLogger(r.Context(), h.logger, "AuthHandler", operation, fields...)
}

// Register creates a regular account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r, "Register", zap.String("error_kind", "bad_request")).Info("failed to decode registration", zap.Error(err))
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.users.Register(r.Context(), application.RegisterParams{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// Token exchanges a username and password for a token pair.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	pair, err := h.service.Login(r.Context(), application.LoginParams{Username: req.Username, Password: req.Password})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTokenResponse(pair))
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTokenResponse(pair))
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

func toTokenResponse(pair application.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  formatTimestamp(pair.AccessExpiresAt),
		RefreshExpiresAt: formatTimestamp(pair.RefreshExpiresAt),
	}
}
