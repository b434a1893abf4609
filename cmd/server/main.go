/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the custody approval engine server: configuration,
  dependency injection, and graceful shutdown.

CONFIGURATION (viper: flags first, then CUSTODY_* env vars, then defaults):
  -port / CUSTODY_PORT                  HTTP server port (default 8080)
  -db / CUSTODY_DB                      SQLite database path (default custody.db)
  -uploads / CUSTODY_UPLOADS            Artifact directory (default ./uploads)
  -jwt-secret / CUSTODY_JWT_SECRET      HMAC secret for bearer tokens
  -lenient-roles / CUSTODY_LENIENT_ROLES
      Treat unrecognized role claims as employee (legacy behavior, off by default)
  -enforce-membership / CUSTODY_ENFORCE_MEMBERSHIP
      Require project membership at submission (off by default)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the database, exit.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/custody-engine/api"
	"github.com/warp/custody-engine/approval"
	"github.com/warp/custody-engine/auth"
	"github.com/warp/custody-engine/ledger"
	"github.com/warp/custody-engine/notify"
	"github.com/warp/custody-engine/objectstore"
	"github.com/warp/custody-engine/store/sqlite"
)

func main() {
	pflag.Int("port", 8080, "HTTP server port")
	pflag.String("db", "custody.db", "SQLite database path")
	pflag.String("uploads", "./uploads", "Directory for uploaded artifacts")
	pflag.String("jwt-secret", "dev-secret-change-me", "HMAC secret for bearer tokens")
	pflag.Bool("lenient-roles", false, "Treat unrecognized role claims as employee")
	pflag.Bool("enforce-membership", false, "Require project membership at submission")
	pflag.Parse()

	v := viper.New()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	v.SetEnvPrefix("CUSTODY")
	v.AutomaticEnv()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Persistence
	store, err := sqlite.New(v.GetString("db"))
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Collaborators
	objects, err := objectstore.NewLocal(v.GetString("uploads"), "/uploads")
	if err != nil {
		log.Fatal("failed to initialize object store", zap.Error(err))
	}

	dispatcher := notify.NewAsync(notify.NewLog(log), log)

	var authOpts []auth.ProviderOption
	if v.GetBool("lenient-roles") {
		authOpts = append(authOpts, auth.WithLenientRoles())
	}
	authProvider := auth.NewJWTProvider([]byte(v.GetString("jwt-secret")), authOpts...)

	// Core
	var engineOpts []approval.Option
	engineOpts = append(engineOpts, approval.WithLogger(log))
	if v.GetBool("enforce-membership") {
		engineOpts = append(engineOpts, approval.WithMembershipEnforcement())
	}
	engine := approval.NewEngine(store, dispatcher, engineOpts...)
	calculator := ledger.NewCalculator(store)

	handler := api.NewHandler(store, engine, calculator, objects, authProvider, log)
	router := api.NewRouter(handler, api.RouterConfig{UploadsDir: objects.Root()})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", v.GetInt("port")),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
