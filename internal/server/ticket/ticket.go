// Package ticket issues and validates session tickets: HS256 JWTs binding a
// participant to one live session.
package ticket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer значение iss в тикетах
const Issuer = "repsync"

// ErrInvalidTicket indicates a malformed, expired or foreign ticket
var ErrInvalidTicket = errors.New("invalid session ticket")

// Claims представляет JWT claims тикета сессии
type Claims struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	jwt.RegisteredClaims
}

// Config содержит конфигурацию тикетов
type Config struct {
	Secret []byte
	TTL    time.Duration
}

// Service signs and verifies tickets
type Service struct {
	now func() time.Time
	cfg Config
}

// NewService creates a ticket service. now may be nil.
func NewService(cfg Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{cfg: cfg, now: now}
}

// Issue signs a ticket for a participant of a session
func (s *Service) Issue(sessionID, participantID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TTL)

	claims := Claims{
		SessionID:     sessionID,
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign ticket: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses a ticket and checks its signature, issuer and lifetime
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.ParticipantID == "" {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}

// GenerateSecret returns a random hex secret for deployments without a
// configured one. Tickets signed with it do not survive a restart.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate ticket secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type contextKey struct{}

// WithClaims stores validated claims in the context
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the claims stored by WithClaims
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}
