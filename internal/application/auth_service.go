package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/persistence"
)

// AuthService coordinates login, token refresh and request authentication.
type AuthService struct {
	users  persistence.UserRepository
	hasher PasswordHasher
	tokens *TokenIssuer
	logger *zap.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users persistence.UserRepository, hasher PasswordHasher, tokens *TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, logger: defaultLogger(logger)}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, fields...)
}

// Login validates credentials and issues an access and refresh token.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (pair TokenPair, err error) {
	if s == nil || s.users == nil || s.tokens == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Login", zap.String("username", username))
	var userID string
	defer func() {
		if err != nil {
			logFailure(logger, "authentication failed", err)
			return
		}
		logger.Info("authentication succeeded", zap.String("user_id", userID))
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	if verifyErr := s.hasher.Verify(user.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	userID = user.ID
	pair, err = s.tokens.Issue(user.ID, user.Username)
	return
}

// Refresh exchanges a valid refresh token for a new pair. The user must still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair TokenPair, err error) {
	if s == nil || s.users == nil || s.tokens == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Refresh")
	defer func() {
		if err != nil {
			logFailure(logger, "token refresh failed", err)
		}
	}()

	claims, err := s.tokens.Parse(strings.TrimSpace(refreshToken), tokenTypeRefresh)
	if err != nil {
		return
	}
	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidToken
		}
		return
	}

	pair, err = s.tokens.Issue(user.ID, user.Username)
	if err == nil {
		logger.Debug("token refreshed", zap.String("user_id", user.ID))
	}
	return
}

// Authenticate resolves an access token to the principal it was issued for,
// reading the admin flag and groups as they are now.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if s == nil || s.users == nil || s.tokens == nil {
		return Principal{}, fmt.Errorf("AuthService is not configured")
	}

	claims, err := s.tokens.Parse(strings.TrimSpace(accessToken), tokenTypeAccess)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		s.loggerWith(ctx, "Authenticate", zap.String("user_id", claims.Subject)).Error("failed to load user", zap.Error(err))
		return Principal{}, err
	}

	return Principal{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		Groups:   append([]string(nil), user.Groups...),
	}, nil
}
