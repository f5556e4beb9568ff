package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Predefined service errors.
var (
	ErrUserNotFound            = errors.New("user not found")
	ErrUsernameTaken           = errors.New("username already taken")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrCurrentPasswordRequired = errors.New("current password is required to set a new password")
	ErrIncorrectPassword       = errors.New("current password is incorrect")
)

// Service provides authentication operations.
type Service struct {
	jwtService *JWTService
	userRepo   UserRepository
	now        func() time.Time
	logger     zerolog.Logger
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	UserRepo   UserRepository
	Now        func() time.Time
	Logger     zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		jwtService: cfg.JWTService,
		userRepo:   cfg.UserRepo,
		now:        now,
		logger:     cfg.Logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	hash, err := HashPassword(creds.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(creds.Username),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return s.issueToken(user)
}

// Login checks credentials and returns a fresh token. An unknown username
// and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, creds.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug().Str("user_id", user.ID).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// ValidateAccessToken validates an access token and returns the user ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// UpdateProfile applies a username and/or password change.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, ErrCurrentPasswordRequired
		}
		ok, err := CheckPassword(user.PasswordHash, req.CurrentPassword)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrIncorrectPassword
		}
		hash, err := HashPassword(req.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}

	return user, nil
}

func (s *Service) issueToken(user *User) (*TokenResponse, error) {
	token, _, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	return &TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwtService.Expiry().Seconds()),
		User:      user,
	}, nil
}
