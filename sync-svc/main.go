package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"restaurant-sync/config"
	httpapi "restaurant-sync/sync-svc/internal/api/http"
	"restaurant-sync/sync-svc/internal/app"
	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/service"
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := app.New(cfg)
	defer engine.Close()
	supervisor := engine.Live(nil)

	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Printf("stream: supervisor stopped: %v", err)
		}
	}()

	handler := httpapi.NewHandler(engine.Reconciler, engine.Projector, supervisor,
		service.DefaultQRGenerator{URLTemplate: cfg.GuestOrderingURL}, cfg.RestaurantID, domain.Role(cfg.Role))
	server := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(handler))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Sync Service for %s (%s, %s) starting on %s", cfg.RestaurantID, cfg.Role, cfg.Transport, cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
