package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/pkg/config"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

// Verifier validates access tokens issued by the external authentication
// layer and extracts the caller identity. It never issues tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience []string
}

// NewVerifier builds a Verifier from the JWT configuration.
func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Verify parses and validates a bearer token, returning its claims.
func (v *Verifier) Verify(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	for _, aud := range v.audience {
		opts = append(opts, jwt.WithAudience(aud))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid access token")
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}

	return claims, nil
}
