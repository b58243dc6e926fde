package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// DeniedResponse is the body written when admission is denied.
type DeniedResponse struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
}

// WriteDenied writes a {"error":true,"msg":...} body with the given status.
func WriteDenied(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(DeniedResponse{Error: true, Msg: msg})
}

// Middleware runs the admission check before next. Denied requests receive
// 401 with the decision's reason; permitted requests carry the Decision on
// their context.
func (a *Authorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := a.Authorize(r.Context(), r)
		if !d.Allowed {
			WriteDenied(w, http.StatusUnauthorized, d.Reason)
			return
		}

		ctx := context.WithValue(r.Context(), decisionKey, d)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Context key for the admission decision
type contextKey string

const decisionKey contextKey = "admission_decision"

// DecisionFrom retrieves the admission decision from a request context.
func DecisionFrom(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey).(Decision)
	return d, ok
}
