package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/hostguard/internal/api/apierr"
	"github.com/mcoot/hostguard/internal/services/auth"
)

// streamTokenParam carries the operator token for clients that cannot set
// headers, such as a browser EventSource. It is only honoured on GET.
const streamTokenParam = "access_token"

// Auth rejects requests without a valid operator token. Requests pass
// through untouched when the service has no token configured.
func Auth(authService *auth.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authService.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if err := authService.Verify(operatorToken(r)); err != nil {
				logger.Debug("operator token rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote", r.RemoteAddr),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="hostguard"`)
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func operatorToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get(streamTokenParam)
	}
	return ""
}
