package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caseflow/internal/app"
	"caseflow/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowOwnerHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the pipeline API. Bearer tokens are HS256 JWTs signed with CASEFLOW_JWT_SECRET whose subject is the owner id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(ctx context.Context, a *app.Context) error {
				if !cmd.Flags().Changed("addr") && a.Config.Server.Addr != "" {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && a.Config.Server.BasePath != "" {
					basePath = a.Config.Server.BasePath
				}
				if !cmd.Flags().Changed("allow-owner-header") {
					allowOwnerHeader = a.Config.Server.AllowOwnerHeader
				}
				authCfg := server.AuthConfig{
					JWTSecret:        os.Getenv("CASEFLOW_JWT_SECRET"),
					AllowOwnerHeader: allowOwnerHeader,
					Logger:           a.Log,
				}
				if authCfg.JWTSecret == "" && !authCfg.AllowOwnerHeader {
					return fmt.Errorf("CASEFLOW_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Auth: authCfg, Log: a.Log})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Log.Info("serving caseflow API",
					zap.String("addr", addr),
					zap.String("base_path", basePath),
					zap.Bool("owner_header", allowOwnerHeader))
				fmt.Printf("Serving Caseflow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowOwnerHeader, "allow-owner-header", false, "accept unauthenticated X-Owner-Id (local use only)")
	return cmd
}
