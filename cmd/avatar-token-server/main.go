// Command avatar-token-server issues streaming session tokens to avatar
// clients so the service API key never leaves the server.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/accesstoken"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar/heygen"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if cfg.Server.APIKey == "" {
		log.Fatal("HEYGEN_API_KEY is required")
	}

	var opts []heygen.Option
	if cfg.Server.BaseURL != "" {
		opts = append(opts, heygen.WithBaseURL(cfg.Server.BaseURL))
	}
	apiKey := cfg.Server.APIKey
	issuer := func(ctx context.Context) (string, error) {
		return heygen.CreateToken(ctx, apiKey, opts...)
	}

	mux := http.NewServeMux()
	mux.Handle(accesstoken.DefaultPath, accesstoken.Handler(issuer))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down: %v", err)
		}
	}()

	log.Printf("token server listening on %s%s", cfg.Server.Addr, accesstoken.DefaultPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
