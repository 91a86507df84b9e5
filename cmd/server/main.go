package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tabletop/internal/app"
	"tabletop/internal/config"
	"tabletop/internal/supervisor"
)

func main() {
	log.Println("started")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to start:", err)
	}

	idle := supervisor.NewIdle(cfg.IdleShutdown, stop)
	a.Hub.SetObserver(idle)
	if cfg.IdleShutdown > 0 {
		log.Printf("Idle shutdown after %s without connections", cfg.IdleShutdown)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Printf("Store backend: %s, coordinates: %s", cfg.Store.Backend, cfg.CoordinateSpace)
		log.Println("Endpoints:")
		log.Println("  GET    /health")
		log.Println("  GET    /check-room?roomId=")
		log.Println("  POST   /create-room")
		log.Println("  DELETE /delete-room")
		log.Println("  POST   /admin/login")
		log.Println("  GET    /rooms")
		log.Println("  WS     /ws")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	<-ctx.Done()
	idle.Stop()
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Server forced to shutdown:", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Println("Final save failed:", err)
	}

	log.Println("Server exited")
}
