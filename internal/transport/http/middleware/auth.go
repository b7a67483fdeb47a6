package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-tasks-api/internal/domain"
)

type contextKey string

const AccountKey contextKey = "account"

// Authenticator resolves a bearer token to the account it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.AccountSummary, error)
}

// Auth returns middleware that authenticates the Bearer token and injects the
// account summary into the request context.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
			account, err := a.Authenticate(r.Context(), token)
			if err != nil {
				msg, ok := domain.Message(err)
				if !ok {
					msg = "Something went wrong"
				}
				writeJSONError(w, StatusFor(err), msg)
				return
			}
			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext extracts the authenticated account from the request context.
func AccountFromContext(ctx context.Context) (domain.AccountSummary, bool) {
	a, ok := ctx.Value(AccountKey).(domain.AccountSummary)
	return a, ok
}
