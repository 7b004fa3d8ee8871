package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims of an API access token
type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed access token with its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresIn int64     `json:"expires_in"`
	ExpiresAt time.Time `json:"-"`
}

// TokenService issues and verifies stateless HS256 bearer tokens
type TokenService struct {
	users  services.UserService
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret
func NewTokenService(users services.UserService, secret []byte, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		users:  users,
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueToken authenticates username and password and signs a token for the user
func (s *TokenService) IssueToken(ctx context.Context, username, password string) (*IssuedToken, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(s.ttl.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken validates signature, algorithm, issuer and expiry and returns
// the id of an existing user. Every failure wraps services.ErrUnauthorized.
func (s *TokenService) VerifyToken(ctx context.Context, tokenString string) (uint, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC to prevent algorithm confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", services.ErrUnauthorized, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, fmt.Errorf("%w: token missing uid claim", services.ErrUnauthorized)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return 0, fmt.Errorf("%w: user no longer exists", services.ErrUnauthorized)
		}
		return 0, err
	}
	return user.ID, nil
}
