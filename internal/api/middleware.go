package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"multimind.ai/server/internal/auth"
	"multimind.ai/server/internal/core"
)

type callerKey struct{}

// AuthMiddleware rejects requests without a valid session token.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := h.verifier.Verify(token)
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("Rejected session token")
			writeFailure(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the identity when a valid token is present and otherwise
// lets the request through anonymously.
func (h *APIHandler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := auth.TokenFromRequest(r); token != "" {
			if id, err := h.verifier.Verify(token); err == nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// EntitlementMiddleware resolves the caller's plan and free usage. Must run after AuthMiddleware.
func (h *APIHandler) EntitlementMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ent, err := h.resolver.Resolve(r.Context(), id)
		if err != nil {
			handleErr(w, r, err)
			return
		}

		caller := core.Caller{Identity: id, Entitlement: ent}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) (core.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(core.Caller)
	return caller, ok
}
