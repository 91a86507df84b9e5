package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tabletop/internal/cache"
	"tabletop/internal/config"
	"tabletop/internal/repository"
	"tabletop/internal/service"
	"tabletop/internal/store"
	"tabletop/internal/transport/rest"
	"tabletop/internal/transport/ws"
)

const connectTimeout = 5 * time.Second

// App is the wired server: engine, websocket hub, persistence and router.
type App struct {
	Engine *service.Engine
	Hub    *ws.Hub
	Saver  *service.WriteBehind
	Router http.Handler

	closers []func(context.Context) error
}

// New connects the configured snapshot backend and wires the server.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	blobs, closer, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a, err := NewWithStore(ctx, cfg, blobs)
	if err != nil {
		if closer != nil {
			closer(ctx)
		}
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// NewWithStore wires the server on top of an already open BlobStore and
// restores the room table from it.
func NewWithStore(ctx context.Context, cfg *config.Config, blobs store.BlobStore) (*App, error) {
	rng := service.NewRand()
	registry := service.NewRegistry(cfg.DeckCards, rng)
	binder := service.NewBinder(registry, service.NewPlacement(cfg, rng))
	gateway := service.NewGateway(blobs, cfg.Store.Key, cfg.Store.Timeout)
	engine := service.NewEngine(registry, binder, gateway, rng)

	rooms := engine.Restore(ctx)
	log.Printf("Restored %d rooms", rooms)

	hub := ws.NewHub()
	log.Println("WebSocket hub started")
	engine.SetBroadcaster(hub)

	saver := service.NewWriteBehind(gateway, engine.Snapshot, cfg.Store.SaveDebounce)
	engine.SetSaver(saver)

	if !cfg.AdminEnabled() {
		log.Println("Warning: ADMIN_PASSWORD not set, room administration disabled")
	}
	authSvc := service.NewAuthService(cfg.AdminPassword, cfg.JWTSecret, cfg.AdminTokenTTL)

	router := rest.NewRouter(&rest.Container{
		AuthService: authSvc,
		Engine:      engine,
		WSHandler:   ws.NewHandler(hub, engine),
		CORSOrigins: cfg.CORSOrigins,
	})

	return &App{
		Engine: engine,
		Hub:    hub,
		Saver:  saver,
		Router: router,
	}, nil
}

// Close makes a final best-effort save, then stops the saver and hub and
// releases backend clients.
func (a *App) Close(ctx context.Context) error {
	err := a.Saver.Flush(ctx)
	if err != nil {
		log.Printf("final save failed: %v", err)
	}
	a.Saver.Close()
	a.Hub.Close()
	for _, c := range a.closers {
		if cerr := c(ctx); cerr != nil {
			log.Printf("close backend: %v", cerr)
		}
	}
	return err
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.BlobStore, func(context.Context) error, error) {
	switch sc.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: sc.RedisAddr(),
		})
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if _, err := rdb.Ping(pingCtx).Result(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Println("Connected to Redis")
		return cache.NewSnapshotCache(rdb, sc.Bucket), func(context.Context) error { return rdb.Close() }, nil

	case config.BackendMongo:
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := mongo.Connect(connCtx, options.Client().ApplyURI(sc.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(connCtx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		log.Println("Connected to MongoDB")
		return newSnapshotRepo(client, sc), client.Disconnect, nil

	case config.BackendSupabase:
		log.Printf("Using Supabase Storage bucket %q", sc.Bucket)
		return store.NewSupabaseBlobStore(sc.SupabaseURL, sc.SupabaseKey, sc.Bucket, &http.Client{Timeout: sc.Timeout}), nil, nil

	default:
		log.Println("Warning: STORE_BACKEND=memory, rooms will not survive a restart")
		return store.NewMemoryBlobStore(), nil, nil
	}
}

// newSnapshotRepo stores the table in collection <bucket> of the configured
// database.
func newSnapshotRepo(client *mongo.Client, sc config.StoreConfig) *repository.SnapshotRepo {
	return repository.NewSnapshotRepo(client.Database(sc.MongoDatabase), sc.Bucket)
}
