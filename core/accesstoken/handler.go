package accesstoken

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Issuer creates a new token, typically by exchanging a secret API key with
// the avatar provider.
type Issuer func(ctx context.Context) (string, error)

// Handler serves tokens created by issuer as plain text. Only POST is
// accepted. Issuer failures are logged and answered with a generic 500 so the
// provider's error never leaks to the caller.
func Handler(issuer Issuer) http.Handler {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token, err := issuer(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to issue access token", slog.String("error", err.Error()))
			http.Error(w, "failed to retrieve access token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(token))
	})

	return otelhttp.NewHandler(handler, "issue access token")
}
