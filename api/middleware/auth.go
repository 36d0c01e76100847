package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/teamhub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

// Auth rejects requests without a valid access token. Downstream handlers
// read the caller with ActorFromContext.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), logg, claims.Actor())))
		})
	}
}

func withCaller(ctx context.Context, logg *logger.Logger, actor pkgAuth.Actor) context.Context {
	ctx = WithActor(ctx, actor)
	if logg == nil {
		return ctx
	}
	ctx = logg.WithUserID(ctx, actor.UserID.String())
	ctx = logg.WithUsername(ctx, actor.Username)
	return logg.WithSuperuser(ctx, actor.IsSuperuser)
}

// RequireSuperuser rejects callers without the administrator flag.
func RequireSuperuser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsSuperuserFromContext(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "administrator required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken accepts "Bearer <token>" in any case, or a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
