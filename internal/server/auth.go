package server

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"caseflow/internal/engine"
	"caseflow/internal/logging"
	"caseflow/internal/repo"
)

type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens whose subject is the owner id.
	JWTSecret string
	// AllowOwnerHeader accepts an unauthenticated X-Owner-Id header. Local use only.
	AllowOwnerHeader bool
	Logger           *zap.Logger
}

// Principal is the owner a request acts for and how that was established.
type Principal struct {
	OwnerID string
	Source  string
}

const (
	sourceJWT         = "jwt"
	sourceAPIKey      = "api_key"
	sourceOwnerHeader = "owner_header"
)

var errBadCredentials = errors.New("invalid credentials")

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ownerFromContext returns the owner every engine call is scoped to.
func ownerFromContext(ctx context.Context) (string, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.OwnerID != "" {
		return p.OwnerID, nil
	}
	return "", unauthorized()
}

func unauthorized() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

// credential resolves a principal from one kind of request credential. present
// is false when the request does not carry that credential at all.
type credential func(r *http.Request) (p Principal, present bool, err error)

// credentials lists the accepted credentials in precedence order: bearer token,
// API key, then the owner header when allowed.
func (c AuthConfig) credentials(keys repo.Repo) []credential {
	creds := []credential{c.bearer, apiKey(keys)}
	if c.AllowOwnerHeader {
		creds = append(creds, c.ownerHeader)
	}
	return creds
}

func (c AuthConfig) bearer(r *http.Request) (Principal, bool, error) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return Principal{}, false, nil
	}
	scheme, token, ok := strings.Cut(authz, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return Principal{}, true, errBadCredentials
	}
	owner, err := verifyOwnerToken(token, c.JWTSecret)
	if err != nil {
		return Principal{}, true, err
	}
	return Principal{OwnerID: owner, Source: sourceJWT}, true, nil
}

// verifyOwnerToken checks an HS256 token and returns its subject.
func verifyOwnerToken(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("bearer tokens disabled: no signing secret configured")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func apiKey(keys repo.Repo) credential {
	return func(r *http.Request) (Principal, bool, error) {
		key := strings.TrimSpace(r.Header.Get("X-Api-Key"))
		if key == "" {
			return Principal{}, false, nil
		}
		stored, err := keys.GetAPIKeyByHash(r.Context(), repo.HashAPIKey(key))
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return Principal{}, true, errBadCredentials
		case err != nil:
			return Principal{}, true, engine.PersistenceError{Op: "authenticate", Err: err}
		}
		return Principal{OwnerID: stored.OwnerID, Source: sourceAPIKey}, true, nil
	}
}

func (c AuthConfig) ownerHeader(r *http.Request) (Principal, bool, error) {
	owner := strings.TrimSpace(r.Header.Get("X-Owner-Id"))
	if owner == "" {
		return Principal{}, false, nil
	}
	logging.OrNop(c.Logger).Debug("unauthenticated owner header accepted", zap.String("owner_id", owner))
	return Principal{OwnerID: owner, Source: sourceOwnerHeader}, true, nil
}

// newAuthMiddleware attaches a Principal to every request under basePath,
// except health and the OpenAPI document.
func newAuthMiddleware(basePath string, cfg AuthConfig, keys repo.Repo) func(http.Handler) http.Handler {
	public := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "openapi.json"): true,
	}
	creds := cfg.credentials(keys)
	log := logging.OrNop(cfg.Logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, basePath) || public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			for _, resolve := range creds {
				p, present, err := resolve(r)
				if !present {
					continue
				}
				if err != nil {
					var pe engine.PersistenceError
					if errors.As(err, &pe) {
						writeError(w, handleError(err))
						return
					}
					log.Debug("credentials rejected", zap.String("path", r.URL.Path), zap.Error(err))
					writeError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
				return
			}
			writeError(w, unauthorized())
		})
	}
}
