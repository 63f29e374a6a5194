package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
)

const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"

	actorKey contextKey = "actor"
)

// ActorContext reads the caller identity set by the upstream gateway and stores it in the
// request context. Requests without an identity pass through anonymously; handlers decide
// whether an actor is required. The system role is reserved for in-process callers.
func ActorContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(ActorIDHeader))
			role := model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(ActorRoleHeader))))

			if id == "" && role == "" {
				next.ServeHTTP(w, r)
				return
			}
			if id == "" || !role.Valid() || role == model.RoleSystem {
				writeAppError(w, apperrors.InvalidInput("invalid actor headers"))
				return
			}

			ctx := WithActor(r.Context(), model.Actor{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// RequireActor is the handler-side check for endpoints that need an identity.
func RequireActor(r *http.Request) (model.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return model.Actor{}, apperrors.Forbidden("actor identity is required")
	}
	return actor, nil
}
