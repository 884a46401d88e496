package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/sidereusnuntius/wikifront/internal/state"
	"github.com/sidereusnuntius/wikifront/internal/telemetry"
	"github.com/sidereusnuntius/wikifront/internal/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wiki frontend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "address to listen on (default :8080)")
	serveCmd.Flags().Bool("metrics", false, "serve Prometheus metrics on /metrics")
	_ = v.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("metrics", serveCmd.Flags().Lookup("metrics"))
}

// newRouter builds the routes of the frontend on top of st. metrics, if not nil, is served on /metrics.
func newRouter(cfg *config.Configuration, st *state.State, metrics http.Handler) http.Handler {
	manager := scs.NewCookieManager(cfg.SessionKey)
	handler := web.New(cfg, st.Service, st.Session, manager)

	router := chi.NewRouter()
	handler.Mount(router)
	if metrics != nil {
		router.Handle("/metrics", metrics)
	}
	return router
}

func serve(ctx context.Context, cfg config.Configuration) error {
	var metrics http.Handler
	if cfg.Metrics {
		tel, err := telemetry.Setup()
		if err != nil {
			return err
		}
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("failed to shut down telemetry")
			}
		}()
		metrics = tel.Handler()
	}

	st, err := state.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Send()
		}
	}()

	go st.Cache.Run(ctx)
	st.Session.Start(ctx)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(&cfg, st, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.ListenAndServe()
	}()
	log.Info().Str("addr", cfg.Addr).Str("api", cfg.ApiUrl.String()).Msg("started server")

	select {
	case err = <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
