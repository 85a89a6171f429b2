package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/cryptox"
	"github.com/antonpetrovs/whisperline/internal/server/auth"
	"github.com/antonpetrovs/whisperline/internal/server/config"
	"github.com/antonpetrovs/whisperline/internal/server/models"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/repomanager"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:              db,
		repomanager:     m,
		jwtSecret:       []byte(cfg.Auth.JWTSecret),
		accessTokenTTL:  cfg.Auth.AccessTokenTTL,
		refreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}
}

// Register creates the account with a bcrypt password hash and a fresh
// encryption salt, then opens the first session.
func (s *UserService) Register(ctx context.Context, email, password, deviceID string) (*models.User, *TokenPair, error) {

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Email:          email,
		PasswordHash:   string(hash),
		EncryptionSalt: cryptox.GenerateSalt(),
	}

	repo := s.repomanager.Users(s.db)

	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.generateTokenPair(ctx, user.ID, deviceID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login verifies the password and opens a new session. Unknown accounts and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password, deviceID string) (*models.User, *TokenPair, error) {

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user.ID, deviceID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh validates a refresh token against its stored session and issues a
// new access token. The session stays valid until logout or expiry.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {

	userID, sessionID, err := auth.ParseRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Sessions(s.db)
	session, err := repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrSessionExpired
		}
		return "", common.ErrorInternal
	}

	if session.UserID != userID || session.RefreshTokenHash != auth.HashToken(refreshToken) {
		return "", common.ErrInvalidToken
	}
	if session.ExpiresAt.Before(time.Now()) {
		_ = repo.Delete(ctx, sessionID)
		return "", common.ErrSessionExpired
	}

	accessToken, err := auth.GenerateAccessToken(userID, s.jwtSecret, s.accessTokenTTL)
	if err != nil {
		return "", common.ErrorInternal
	}
	return accessToken, nil
}

// Logout drops every session of the user, invalidating all refresh tokens.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.DeleteAllForUser(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// GetUser loads the account backing an access token.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// VerifyAccessToken resolves the bearer token to a user id.
func (s *UserService) VerifyAccessToken(tokenString string) (string, error) {
	return auth.ParseAccessToken(tokenString, s.jwtSecret)
}

// TokenPairFor opens a session for a user authenticated by other means,
// such as a redeemed pairing token.
func (s *UserService) TokenPairFor(ctx context.Context, userID, deviceID string) (*TokenPair, error) {
	return s.generateTokenPair(ctx, userID, deviceID)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID, deviceID string) (*TokenPair, error) {

	sessionID := uuid.NewString()

	refreshToken, err := auth.GenerateRefreshToken(userID, sessionID, s.jwtSecret, s.refreshTokenTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}

	accessToken, err := auth.GenerateAccessToken(userID, s.jwtSecret, s.accessTokenTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Sessions(s.db)
	err = repo.Create(ctx, &models.Session{
		ID:               sessionID,
		UserID:           userID,
		DeviceID:         deviceID,
		RefreshTokenHash: auth.HashToken(refreshToken),
		ExpiresAt:        time.Now().Add(s.refreshTokenTTL),
	})
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
