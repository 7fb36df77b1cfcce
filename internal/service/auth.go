package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/garage-service/internal/domain"
	"github.com/tazhibayda/garage-service/internal/log"
	"github.com/tazhibayda/garage-service/internal/security"
)

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*security.IDClaims, error)
}

type UserStore interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

// Auth verifies social tokens, resolves them to internal users and
// mints session tokens.
type Auth struct {
	Verifier   TokenVerifier
	Users      UserStore
	JWTSecret  string
	SessionTTL time.Duration
}

// LoginSocial runs the whole social login flow. Every verifier failure
// collapses into domain.ErrAuth for the caller; the concrete kind is
// only logged.
func (a *Auth) LoginSocial(ctx context.Context, idToken string) (string, *domain.User, error) {
	if idToken == "" {
		return "", nil, fmt.Errorf("%w: idToken must be a string", domain.ErrValidation)
	}
	claims, err := a.Verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			log.WithDD(ctx, log.L).Info("social token rejected", zap.String("reason", err.Error()))
		}
		return "", nil, err
	}

	u, err := a.Resolve(ctx, claims)
	if err != nil {
		return "", nil, err
	}

	token, err := security.MakeSession(a.JWTSecret, u.ID.Hex(), u.Email, a.SessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: mint session: %v", domain.ErrInternal, err)
	}
	return token, u, nil
}

// Resolve maps verified claims to a user, creating one on first sight.
// Profile fields are first-write-wins: an existing user is returned
// untouched even when the claims carry a different email or name.
// A concurrent first-login loses the insert race on the external_id
// unique index and re-reads the winner: one retry, then conflict.
func (a *Auth) Resolve(ctx context.Context, claims *security.IDClaims) (*domain.User, error) {
	u, err := a.Users.FindUserByExternalID(ctx, claims.Sub)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	nu := &domain.User{
		Email:      claims.Email,
		Name:       claims.Name,
		Provider:   "google",
		ExternalID: claims.Sub,
		Role:       "user",
		Verified:   claims.EmailVerified,
	}
	err = a.Users.CreateUser(ctx, nu)
	if err == nil {
		return nu, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}

	u, err = a.Users.FindUserByExternalID(ctx, claims.Sub)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user create race not resolved for sub %s", domain.ErrConflict, claims.Sub)
	}
	return u, nil
}
