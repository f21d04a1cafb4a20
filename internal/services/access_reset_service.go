package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/mailer"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/ratelimit"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/anonto42/mindhaven/backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const verifierBytes = 32

var errInvalidResetToken = apperrors.Validation("Invalid or expired reset token", map[string]string{"token": "invalid"})

type profileByEmail interface {
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// AccessResetService issues and redeems one-time access reset links.
// Tokens have the form <selector>.<verifier>; only a bcrypt hash of the
// verifier is stored, under the selector as primary key.
type AccessResetService struct {
	tokens   repositories.AccessResetTokenRepository
	profiles profileByEmail
	limiter  ratelimit.Limiter
	mailer   mailer.Mailer
	log      *logrus.Logger
	siteURL  string
	ttl      time.Duration
	hashCost int
	random   io.Reader
	now      func() time.Time
	// outageLog throttles the fail-open warning while the limiter is down.
	outageLog *rate.Sometimes
}

func NewAccessResetService(
	tokens repositories.AccessResetTokenRepository,
	profiles profileByEmail,
	limiter ratelimit.Limiter,
	m mailer.Mailer,
	log *logrus.Logger,
	siteURL string,
	ttl time.Duration,
) *AccessResetService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AccessResetService{
		tokens:    tokens,
		profiles:  profiles,
		limiter:   limiter,
		mailer:    m,
		log:       log,
		siteURL:   strings.TrimSuffix(siteURL, "/"),
		ttl:       ttl,
		hashCost:  bcrypt.DefaultCost,
		random:    rand.Reader,
		now:       func() time.Time { return time.Now().UTC() },
		outageLog: &rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// RequestReset emails a reset link to the owner of email. Unknown addresses
// succeed silently so callers cannot probe which emails are registered.
func (s *AccessResetService) RequestReset(ctx context.Context, ip, email string) error {
	allowed, err := s.limiter.Allow(ctx, ip)
	if err != nil {
		// Fail open: a limiter outage must not lock users out.
		s.outageLog.Do(func() {
			s.log.WithError(err).WithField("ip", ip).Warn("rate limiter unavailable, allowing reset requests")
		})
		metrics.RecordAccessReset("limiter_unavailable")
		allowed = true
	}
	if !allowed {
		metrics.RecordAccessReset("rate_limited")
		return apperrors.RateLimited("Too many reset requests. Please try again later.")
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.RecordAccessReset("unknown_email")
			return nil
		}
		return apperrors.Internal("Failed to process reset request", fmt.Errorf("lookup profile by email: %w", err))
	}

	token, row, err := s.newToken(profile.ID, ip)
	if err != nil {
		return apperrors.Internal("Failed to process reset request", err)
	}
	if err := s.tokens.Create(ctx, row); err != nil {
		return apperrors.Internal("Failed to process reset request", fmt.Errorf("store reset token: %w", err))
	}

	link := s.siteURL + "/reset-access?token=" + url.QueryEscape(token)
	if err := s.mailer.Send(ctx, mailer.AccessResetEmail(profile.Email, link)); err != nil {
		// Surfacing this would reveal that the address is registered.
		s.log.WithError(err).WithField("user_id", profile.ID).Error("failed to send access reset email")
	}

	metrics.RecordAccessReset("issued")
	s.log.WithFields(logrus.Fields{
		"user_id":  profile.ID,
		"selector": row.ID,
	}).Info("access reset token issued")
	return nil
}

// VerifyReset redeems a token once and returns the user it was issued for.
func (s *AccessResetService) VerifyReset(ctx context.Context, token string) (uuid.UUID, error) {
	selector, verifier, ok := splitToken(token)
	if !ok {
		metrics.RecordAccessReset("rejected")
		return uuid.Nil, errInvalidResetToken
	}

	row, err := s.tokens.GetByID(ctx, selector)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.RecordAccessReset("rejected")
			return uuid.Nil, errInvalidResetToken
		}
		return uuid.Nil, apperrors.Internal("Failed to verify reset token", fmt.Errorf("load reset token: %w", err))
	}

	now := s.now()
	if row.UsedAt != nil || !now.Before(row.ExpiresAt) ||
		bcrypt.CompareHashAndPassword([]byte(row.TokenHash), []byte(verifier)) != nil {
		metrics.RecordAccessReset("rejected")
		return uuid.Nil, errInvalidResetToken
	}

	used, err := s.tokens.MarkUsed(ctx, row.ID, now)
	if err != nil {
		return uuid.Nil, apperrors.Internal("Failed to verify reset token", fmt.Errorf("mark reset token used: %w", err))
	}
	if !used {
		metrics.RecordAccessReset("rejected")
		return uuid.Nil, errInvalidResetToken
	}

	metrics.RecordAccessReset("verified")
	return row.UserID, nil
}

func (s *AccessResetService) newToken(userID uuid.UUID, ip string) (string, *models.AccessResetToken, error) {
	buf := make([]byte, verifierBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", nil, fmt.Errorf("generate verifier: %w", err)
	}
	verifier := hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(verifier), s.hashCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash verifier: %w", err)
	}

	now := s.now()
	row := &models.AccessResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: string(hash),
		RequestIP: ip,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	return row.ID.String() + "." + verifier, row, nil
}

func splitToken(token string) (uuid.UUID, string, bool) {
	selectorPart, verifier, found := strings.Cut(strings.TrimSpace(token), ".")
	if !found || len(verifier) != hex.EncodedLen(verifierBytes) {
		return uuid.Nil, "", false
	}
	if _, err := hex.DecodeString(verifier); err != nil {
		return uuid.Nil, "", false
	}
	selector, err := uuid.Parse(selectorPart)
	if err != nil {
		return uuid.Nil, "", false
	}
	return selector, verifier, true
}
