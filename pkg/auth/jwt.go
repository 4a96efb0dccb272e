package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
)

// Claims represents the JWT claims
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 bearer tokens
type JWTValidator struct {
	secretKey []byte
	parser    *jwt.Parser
}

// NewJWTValidator creates a validator. An empty issuer accepts any issuer.
func NewJWTValidator(secretKey, issuer string) (*JWTValidator, error) {
	if secretKey == "" {
		return nil, errors.New("secret key required for HS256")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTValidator{
		secretKey: []byte(secretKey),
		parser:    jwt.NewParser(opts...),
	}, nil
}

// ValidateToken validates a token, with or without the "Bearer " prefix.
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// JWTGenerator issues HS256 tokens
type JWTGenerator struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

// NewJWTGenerator creates a generator for tokens the matching validator accepts.
func NewJWTGenerator(secretKey, issuer string) (*JWTGenerator, error) {
	if secretKey == "" {
		return nil, errors.New("secret key required for HS256")
	}
	return &JWTGenerator{secretKey: []byte(secretKey), issuer: issuer, now: time.Now}, nil
}

// GenerateToken issues a token for subject valid for ttl.
func (g *JWTGenerator) GenerateToken(subject string, roles []string, ttl time.Duration) (string, error) {
	now := g.now()
	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
