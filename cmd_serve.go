package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jsoncv/config"
	"jsoncv/config/database"
	"jsoncv/internal/document/repository"
	"jsoncv/internal/document/service"
	"jsoncv/internal/editor"
	"jsoncv/internal/render"
	"jsoncv/internal/schema"
	"jsoncv/pkg/logger"
	"jsoncv/router"
	"jsoncv/socket"
	"jsoncv/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editor API, live previews and the built site",
	RunE:  runServe,
}

// openProvider returns the session storage for the configured driver and a
// function that releases it.
func openProvider(c *config.Config) (store.Provider, func(), error) {
	switch c.StoreDriver {
	case config.StoreMemory:
		return store.NewMemoryProvider(), func() {}, nil

	case config.StorePostgres:
		db, err := database.Connect(c.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewStateRepository(db)
		if err := repo.EnsureSchema(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil

	default:
		bolt, err := store.NewBoltBackend(c.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return bolt, func() { bolt.Close() }, nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer closeProvider()

	validator, err := schema.NewValidator(nil)
	if err != nil {
		return err
	}
	renderer := render.New(cfg.SiteURL)
	renderer.Production = cfg.Production

	hub := socket.NewHub()
	go hub.Run()

	svc := service.NewSessionService(provider, editor.Options{
		Validator: validator,
		Previewer: renderer,
		Themes:    render.ThemeNames(),
	}, hub)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.Setup(svc, hub, router.Options{
			JWTSecret:  cfg.JWTSecret,
			SiteDir:    cfg.OutDir,
			ResumeName: cfg.ResumeName,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("jsoncv listening on %s (store: %s)", srv.Addr, cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
