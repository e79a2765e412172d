package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCreds = errors.New("invalid credentials")
	ErrNoPassword   = errors.New("dashboard password is not configured")
	ErrInvalidState = errors.New("invalid oauth state")
)

const (
	TokenTTL = 24 * time.Hour
	StateTTL = 10 * time.Minute

	ownerSubject    = "owner"
	stateAudience   = "gmail-oauth"
	sessionAudience = "dashboard"
)

type Options struct {
	Secret       string
	PasswordHash string
	Password     string
	Disabled     bool
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service handles the single-owner dashboard login and signs the OAuth
// state parameter.
type Service struct {
	secret       []byte
	passwordHash []byte
	disabled     bool
	now          func() time.Time
}

func NewService(opts Options) (*Service, error) {
	s := &Service{disabled: opts.Disabled, now: time.Now}

	secret := strings.TrimSpace(opts.Secret)
	if secret == "" {
		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate JWT fallback secret: %w", err)
		}
		secret = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("[auth] JWT_SECRET is not set; using ephemeral in-memory fallback secret")
	}
	s.secret = []byte(secret)

	switch {
	case opts.PasswordHash != "":
		s.passwordHash = []byte(opts.PasswordHash)
	case opts.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing failed: %w", err)
		}
		s.passwordHash = hash
	default:
		if !opts.Disabled {
			log.Print("[auth] no dashboard password configured; login will be refused")
		}
	}
	return s, nil
}

func (s *Service) Disabled() bool { return s.disabled }

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCreds
	}

	exp := s.now().Add(TokenTTL)
	token, err := s.sign(sessionAudience, exp)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// IssueState returns a short-lived signed token for the OAuth state
// parameter.
func (s *Service) IssueState() (string, error) {
	return s.sign(stateAudience, s.now().Add(StateTTL))
}

func (s *Service) VerifyState(state string) error {
	if _, err := s.parse(state, stateAudience); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}

func (s *Service) sign(audience string, exp time.Time) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerSubject,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(tokenString, audience string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithAudience(audience), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}
