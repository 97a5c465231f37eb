package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/isdelr/postboard-be/internal/apperror"
	"github.com/isdelr/postboard-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TokenCookie is the cookie the signin handler stores the bearer token in.
const TokenCookie = "token"

// IdentityResolver looks up the users behind presented credentials.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

type contextKey string

const identityKey = contextKey("identity")

// identity resolves the caller at most once, on first use.
type identity struct {
	once    sync.Once
	resolve func() (models.User, error)
	user    models.User
	err     error
}

func (id *identity) load() (models.User, error) {
	id.once.Do(func() {
		id.user, id.err = id.resolve()
		if id.err == nil {
			log.Debug().Int64("user_id", id.user.ID).Str("username", id.user.Username).Msg("Authenticated request")
		}
	})
	return id.user, id.err
}

var errNotAuthenticated = apperror.NewAuthError("Not authenticated", nil)

// Authenticate attaches the caller's credentials to the request context. A
// bearer token (Authorization header, then the token cookie) is preferred
// over HTTP Basic credentials. Nothing is checked until a handler calls
// UserFromContext, so public routes never pay for a password check.
func Authenticate(issuer *TokenIssuer, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := &identity{resolve: func() (models.User, error) {
				return resolve(r, issuer, resolver)
			}}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user, or the AppError explaining
// why there is none.
func UserFromContext(ctx context.Context) (models.User, error) {
	id, ok := ctx.Value(identityKey).(*identity)
	if !ok {
		return models.User{}, errNotAuthenticated
	}
	return id.load()
}

func resolve(r *http.Request, issuer *TokenIssuer, resolver IdentityResolver) (models.User, error) {
	if tokenStr := bearerToken(r); tokenStr != "" {
		return resolveToken(r.Context(), tokenStr, issuer, resolver)
	}
	if username, password, ok := r.BasicAuth(); ok {
		return resolver.ResolveIdentity(r.Context(), username, password)
	}
	return models.User{}, errNotAuthenticated
}

func resolveToken(ctx context.Context, tokenStr string, issuer *TokenIssuer, resolver IdentityResolver) (models.User, error) {
	claims, err := issuer.Validate(tokenStr)
	if err != nil {
		return models.User{}, apperror.NewAuthError("Invalid auth token", err)
	}

	user, err := resolver.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if apperror.Is(err, apperror.NotFoundError) {
			return models.User{}, apperror.NewAuthError("Invalid auth token", err)
		}
		return models.User{}, err
	}
	// Ids restart after a reset; the username pins the token to the account it was issued for.
	if user.Username != claims.Username {
		return models.User{}, apperror.NewAuthError("Invalid auth token", nil)
	}
	return user, nil
}

// bearerToken returns the token from a Bearer Authorization header, or else
// from the token cookie.
func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
