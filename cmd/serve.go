package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/4tyone/pyrethrum/internal/server"
)

var (
	servePort   int
	servePolicy string
	serveNoSave bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		p, st, err := initPipeline(ctx, servePolicy, !serveNoSave)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(p, st, cfg.Server.RatePerSecond, cfg.Server.RateBurst)
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown failed", zap.Error(err))
			}
		}()

		zap.L().Info("server listening", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "path to a check policy file")
	serveCmd.Flags().BoolVar(&serveNoSave, "no-save", false, "disable run persistence")
	rootCmd.AddCommand(serveCmd)
}
