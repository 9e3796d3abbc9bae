// Package services contains server-side business logic: the vote engine, the
// feature request guard, account deletion and the user/session flows.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/auth"
	"github.com/dmitrijs2005/featureboard/internal/server/config"
	"github.com/dmitrijs2005/featureboard/internal/server/mailer"
	"github.com/dmitrijs2005/featureboard/internal/server/metrics"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/dmitrijs2005/featureboard/internal/server/ratelimit"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const minPasswordLength = 8

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides registration, email verification, password reset,
// rate-limited login and refresh token rotation.
type UserService struct {
	db                         *sql.DB
	repomanager                repomanager.RepositoryManager
	hasher                     auth.PasswordHasher
	mailer                     mailer.Sender
	limiter                    *ratelimit.Limiter
	log                        logging.Logger
	metrics                    *metrics.Metrics
	jwtSecret                  []byte
	systemEmail                string
	accessTokenValidity        time.Duration
	refreshTokenValidity       time.Duration
	verificationTokenValidity  time.Duration
	passwordResetTokenValidity time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, hasher auth.PasswordHasher,
	sender mailer.Sender, limiter *ratelimit.Limiter, log logging.Logger, mt *metrics.Metrics) *UserService {
	return &UserService{
		db:                         db,
		repomanager:                m,
		hasher:                     hasher,
		mailer:                     sender,
		limiter:                    limiter,
		log:                        log.With("module", "users"),
		metrics:                    mt,
		jwtSecret:                  []byte(cfg.SecretKey),
		systemEmail:                normalizeEmail(cfg.SystemUserEmail),
		accessTokenValidity:        cfg.AccessTokenValidityDuration,
		refreshTokenValidity:       cfg.RefreshTokenValidityDuration,
		verificationTokenValidity:  cfg.VerificationTokenValidityDuration,
		passwordResetTokenValidity: cfg.PasswordResetTokenValidityDuration,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if email == s.systemEmail {
		return fmt.Errorf("%w: email is reserved", common.ErrValidation)
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLength)
	}
	return nil
}

// Register creates an unverified USER and emails a verification token. If
// the email cannot be sent the error is returned, but the account stays.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := s.validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: &hash,
		Role:         models.RoleUser,
	}
	if err := s.repomanager.Users(s.db).Create(ctx, user); err != nil {
		err = storeError(err)
		logUnexpected(ctx, s.log, "create user failed", err)
		return nil, err
	}
	s.log.Info(ctx, "user registered", "user_id", user.ID)

	if err := s.sendVerification(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) sendVerification(ctx context.Context, user *models.User) error {
	token, err := auth.GenerateToken(user.ID, user.Role, auth.PurposeVerification, s.jwtSecret, s.verificationTokenValidity)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.log.Warn(ctx, "verification email not sent", "user_id", user.ID, "error", err)
		return fmt.Errorf("error sending verification email: %w: %w", common.ErrEmailDelivery, err)
	}
	return nil
}

// VerifyEmail marks the token's user as verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, auth.PurposeVerification, s.jwtSecret)
	if err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db).MarkVerified(ctx, claims.UserID, time.Now()); err != nil {
		return storeError(err)
	}
	return nil
}

// ResendVerification emails a fresh verification token. Already verified
// accounts are left alone.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return storeError(err)
	}
	if user.VerifiedAt != nil || user.IsSystem() {
		return nil
	}
	return s.sendVerification(ctx, user)
}

// RequestPasswordReset emails a reset token. Unknown emails succeed silently
// so the call cannot be used to discover accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return storeError(err)
	}
	if user.IsSystem() {
		return nil
	}

	token, err := auth.GenerateToken(user.ID, user.Role, auth.PurposePasswordReset, s.jwtSecret, s.passwordResetTokenValidity)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.log.Warn(ctx, "password reset email not sent", "user_id", user.ID, "error", err)
		return fmt.Errorf("error sending password reset email: %w: %w", common.ErrEmailDelivery, err)
	}
	return nil
}

// ResetPassword sets a new password and revokes every refresh token of the
// user in the same transaction.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := auth.ParseToken(token, auth.PurposePasswordReset, s.jwtSecret)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePasswordHash(ctx, claims.UserID, hash); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, claims.UserID)
	})
	if err = txError(err); err != nil {
		logUnexpected(ctx, s.log, "reset password failed", err, "user_id", claims.UserID)
		return err
	}
	return nil
}

// Login checks the rate limiter for the email (or, failing that, addr),
// verifies the password and returns a new TokenPair. A denied attempt yields
// a *ratelimit.Error; bad credentials yield common.ErrorUnauthorized. A
// successful login clears the limiter bucket.
func (s *UserService) Login(ctx context.Context, email, password, addr string) (*TokenPair, error) {
	email = normalizeEmail(email)
	id := ratelimit.Identifier(email, addr)

	decision := s.limiter.Check(id)
	s.metrics.LoginAttempt(decision.Allowed)
	if !decision.Allowed {
		s.log.Info(ctx, "login rate limited", "identifier", id)
		return nil, &ratelimit.Error{Decision: decision}
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		err = storeError(err)
		logUnexpected(ctx, s.log, "load user failed", err)
		return nil, err
	}
	if user.IsSystem() || user.PasswordHash == nil || !s.hasher.Verify(*user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	s.limiter.Reset(id)
	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// --- helpers below ---

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Role, auth.PurposeAccess, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refresh, time.Now().Add(s.refreshTokenValidity)); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
