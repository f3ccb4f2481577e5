package app

import (
	"context"
	"log"
	"net/http"

	"restaurant-sync/config"
	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/service"
	"restaurant-sync/sync-svc/internal/snapshot"
	"restaurant-sync/sync-svc/internal/storage"
	"restaurant-sync/sync-svc/internal/stream"

	"github.com/redis/go-redis/v9"
)

// Engine is one wired synchronization engine: a store, its single writer and
// the live session feeding it.
type Engine struct {
	Config     config.Config
	Store      *storage.Store
	Loader     *snapshot.Loader
	Reconciler *service.Reconciler
	Projector  *service.Projector
	Supervisor *stream.Supervisor

	redis *redis.Client
}

// New wires the snapshot side of an engine. Call Live before Run to attach
// the stream.
func New(cfg config.Config) *Engine {
	store := storage.NewStore()
	loader := snapshot.NewLoader(snapshot.Config{
		BaseURL:      cfg.APIBaseURL,
		RestaurantID: cfg.RestaurantID,
		Limit:        cfg.PageLimit,
	}, &http.Client{Timeout: cfg.RequestTimeout})

	var opts []service.Option
	if domain.Role(cfg.Role) == domain.RoleTablet {
		opts = append(opts, service.WithKitchenStatuses())
	}

	return &Engine{
		Config:     cfg,
		Store:      store,
		Loader:     loader,
		Reconciler: service.NewReconciler(store, loader, opts...),
		Projector:  service.NewProjector(store),
	}
}

// Live builds the supervisor for the configured transport. onState, when
// set, observes every connection state change.
func (e *Engine) Live(onState func(domain.ConnState)) *stream.Supervisor {
	reconciler := e.Reconciler
	e.Supervisor = stream.NewSupervisor(e.dialer(), stream.SupervisorConfig{
		Scope: stream.Scope{RestaurantID: e.Config.RestaurantID, Role: domain.Role(e.Config.Role)},
		Backoff: stream.Backoff{
			Initial:    e.Config.ReconnectInitial,
			Max:        e.Config.ReconnectMax,
			MaxRetries: e.Config.ReconnectMaxRetries,
		},
		OnFrame: func(ctx context.Context, raw string) {
			reconciler.ApplyFrame(ctx, raw)
		},
		OnConnected: reconciler.Resync,
		OnState: func(state domain.ConnState) {
			log.Printf("stream: %s", state)
			if onState != nil {
				onState(state)
			}
		},
	})
	return e.Supervisor
}

func (e *Engine) dialer() stream.Dialer {
	switch e.Config.Transport {
	case config.TransportRedis:
		e.redis = config.MustInitRedis(e.Config)
		return stream.RedisDialer{Client: e.redis}
	case config.TransportKafka:
		return stream.KafkaDialer{Brokers: e.Config.KafkaBrokers, Topic: e.Config.KafkaTopic}
	default:
		return stream.WebSocketDialer{BaseURL: e.Config.WSBaseURL}
	}
}

// Run keeps the live session up until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if e.Supervisor == nil {
		e.Live(nil)
	}
	return e.Supervisor.Run(ctx)
}

func (e *Engine) Close() error {
	if e.redis != nil {
		return e.redis.Close()
	}
	return nil
}
