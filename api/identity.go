/*
identity.go - Actor resolution middleware

PURPOSE:
  Resolves the acting employee for every API call and hands it to the
  handlers as an explicit absence.Actor. Session management and token
  verification belong to the surrounding infrastructure; this middleware is
  its seam. The caller principal arrives in the X-Employee-ID header and is
  resolved against the directory for the authoritative role - the engine
  never trusts a client-supplied role.
*/
package api

import (
	"context"
	"net/http"

	"github.com/meridian/absence-engine/absence"
)

// PrincipalHeader names the header carrying the authenticated employee id.
const PrincipalHeader = "X-Employee-ID"

type contextKey struct{ name string }

var actorKey = contextKey{name: "actor"}

// RequireActor resolves the caller into an Actor or rejects the request.
func (h *Handler) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(PrincipalHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing "+PrincipalHeader+" header", absence.KindForbidden, nil)
			return
		}

		emp, err := h.store.GetEmployee(r.Context(), absence.EmployeeID(id))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve caller", absence.KindInternal, err)
			return
		}
		if emp == nil {
			writeError(w, http.StatusUnauthorized, "unknown employee "+id, absence.KindForbidden, nil)
			return
		}

		actor := absence.Actor{ID: emp.ID, Role: emp.Role}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the Actor resolved by RequireActor.
func actorFrom(r *http.Request) absence.Actor {
	actor, _ := r.Context().Value(actorKey).(absence.Actor)
	return actor
}
