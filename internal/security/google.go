package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tazhibayda/garage-service/internal/domain"
)

// IDClaims are the verified identity claims extracted from a Google ID
// token.
type IDClaims struct {
	Sub           string
	Email         string
	Name          string
	EmailVerified bool
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates Google-issued ID tokens against the issuer JWKS.
// Every failure wraps domain.ErrAuth; the concrete kind (malformed /
// signature / expired / issuer) stays observable for logs and tests.
type Verifier struct {
	fetcher  *Fetcher
	clientID string
}

func NewVerifier(jwksURL string, cacheTTL time.Duration, clientID string) *Verifier {
	return &Verifier{
		fetcher:  NewFetcher(jwksURL, cacheTTL),
		clientID: clientID,
	}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*IDClaims, error) {
	// header-only parse to get the kid before any key fetch
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, parts, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil || len(parts) != 3 {
		return nil, domain.ErrMalformedToken
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, domain.ErrMalformedToken
	}

	pub, err := v.fetcher.Key(ctx, kid)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: jwks fetch: %v", domain.ErrTimeout, err)
		}
		if errors.Is(err, ErrKidNotFound) {
			return nil, domain.ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: jwks fetch: %v", domain.ErrInternal, err)
	}

	claims := &googleClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("bad method")
		}
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, domain.ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrMalformedToken
		default:
			return nil, domain.ErrInvalidSignature
		}
	}

	iss := claims.Issuer
	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, domain.ErrIssuerMismatch
	}
	if !audienceMatch(claims.Audience, v.clientID) {
		return nil, domain.ErrIssuerMismatch
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, domain.ErrMalformedToken
	}

	return &IDClaims{
		Sub:           claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func audienceMatch(aud jwt.ClaimStrings, clientID string) bool {
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}
