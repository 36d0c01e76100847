package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

type actorKey struct{}

// WithActor stores the caller identity on ctx.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns ok=false for requests that never passed Auth.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(auth.Actor)
	if !ok || actor.UserID == uuid.Nil {
		return auth.Actor{}, false
	}
	return actor, true
}

func RequireActor(ctx context.Context) (auth.Actor, error) {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor, nil
	}
	return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func IsSuperuserFromContext(ctx context.Context) bool {
	actor, ok := ActorFromContext(ctx)
	return ok && actor.IsSuperuser
}
