package middleware

import (
	"net/http"
	"strings"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// Authenticate attaches an authorization context to requests carrying a
// valid, active bearer token. Requests without one pass through
// unauthenticated; each handler enforces its own requirement.
func Authenticate(tokens *auth.TokenManager, ledger storage.TokenLedger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		active, err := ledger.IsLoggedIn(r.Context(), token)
		if err != nil || !active {
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.WithContext(r.Context(), auth.FromClaims(claims))
		ctx = withBearer(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken pulls the token out of the Authorization header. Clients send
// both "Bearer <token>" and "Bearer: <token>", so take the last field.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.HasPrefix(strings.ToLower(fields[0]), "bearer") {
		return ""
	}
	return fields[len(fields)-1]
}
