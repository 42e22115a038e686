package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/dmitrijs2005/buildbio/internal/dbx"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/auth"
	"github.com/dmitrijs2005/buildbio/internal/server/config"
	"github.com/dmitrijs2005/buildbio/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService is the built-in identity provider: accounts with bcrypt
// passwords, JWT access tokens and rotating refresh tokens. Every successful
// sign-up or sign-in makes sure the account's profile exists.
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		logger:                       l.With("module", "auth"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > 254 {
		return "", fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	return email, nil
}

// SignUp creates an account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*TokenPair, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).Create(ctx, email, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "account created", "account_id", account.ID)

	return s.signedIn(ctx, account.ID)
}

// SignIn checks credentials. Unknown emails and wrong passwords both yield
// common.ErrorUnauthorized after the same amount of hashing work.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		auth.BurnPasswordCheck(password)
		return nil, common.ErrorUnauthorized
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	return s.signedIn(ctx, account.ID)
}

// Refresh validates a refresh token, rotates it transactionally and returns
// a fresh pair. A token can be redeemed once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !deleted {
			return common.ErrorUnauthorized
		}
		pair, err = s.generateTokenPair(ctx, token.AccountID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// AccountID resolves an access token to the account (and profile) id.
func (s *AuthService) AccountID(token string) (string, error) {
	return auth.GetProfileIDFromToken(token, s.jwtSecret)
}

func (s *AuthService) signedIn(ctx context.Context, accountID string) (*TokenPair, error) {
	err := dbx.WithIdentityTx(ctx, s.db, accountID, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Profiles(tx).Provision(ctx, accountID)
	})
	if err != nil {
		return nil, fmt.Errorf("provision profile: %w", err)
	}
	return s.generateTokenPair(ctx, accountID, s.db)
}

func (s *AuthService) generateTokenPair(ctx context.Context, accountID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(accountID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, accountID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
