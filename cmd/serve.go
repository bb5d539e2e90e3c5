package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentic-research/tabula/internal/config"
	"github.com/agentic-research/tabula/internal/server"
	"github.com/agentic-research/tabula/internal/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tabula HTTP server",
	Long: `Start the HTTP server. Configuration comes from the environment:

  TABULA_STORE_URI        backing store (SQLite path or mongodb:// URI, default "tabula.db")
  TABULA_PORT             listen port (default 5000)
  TABULA_EDITABLE_FIELDS  optional server-side editable-field whitelist
  TABULA_ALLOWED_ORIGINS  CORS origins (default "*")
  TABULA_DEBUG            verbose development logging`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := newLogger(cfg.Debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		st, err := store.Open(ctx, cfg.StoreURI)
		if err != nil {
			return fmt.Errorf("open store %q: %w", cfg.StoreURI, err)
		}
		defer func() { _ = st.Close() }()

		srv := server.New(st, log, server.Options{
			EditableFields: cfg.EditableFields,
			AllowedOrigins: cfg.AllowedOrigins,
		})

		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info("server listening",
			zap.String("addr", addr),
			zap.String("store", cfg.StoreURI))
		return http.ListenAndServe(addr, srv.Handler())
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
