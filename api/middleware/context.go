package middleware

import (
	"context"

	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

type actorKey struct{}

// Actor is the authenticated caller of an admin route.
type Actor struct {
	UserID string
	Role   enums.Role
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// UserIDFromContext returns "" for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.UserID
}
