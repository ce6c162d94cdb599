/*
Package main
File: main.go
Description: Server entry point. Builds the simulation from its YAML data, wires the
renderer-facing observers, and runs the driver loop that keeps the cell alive.
*/

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/everforgeworks/protocell/internal/api"
	"github.com/everforgeworks/protocell/internal/game"
	"github.com/everforgeworks/protocell/internal/journal"
	"github.com/everforgeworks/protocell/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load the simulation data from YAML
	cfgPath := envOr("PROTOCELL_CONFIG", "protocell.yaml")
	cfg, err := game.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Config Fail: %v", err)
	}

	// 2. Build the engine. Validation happens here.
	clock := game.RealClock{}
	engine, err := game.NewEngine(cfg, clock.Now())
	if err != nil {
		log.Fatalf("Config Fail: %v", err)
	}
	log.Printf("Loaded %s: %d resources, %d upgrades, %d unlock rules",
		cfgPath, len(cfg.Resources), len(cfg.Upgrades), len(cfg.UnlockRules))

	// 3. Observers: renderers, message log, metrics, server log
	hub := api.NewHub()
	go hub.Run(ctx)

	messages := journal.New(cfg.Engine.JournalSize, clock)
	collector := metrics.New()
	engine.SetObserver(game.Observers{hub, messages, collector, game.ObserverFunc(logNotification)})

	// 4. THE DRIVER
	// Polls the clock; the engine applies a step once the minimum interval has elapsed.
	session := game.NewSession(engine, clock, cfg.Engine.DriverInterval)
	go session.Run(ctx)

	// 5. Setup Router and Handlers
	server := api.NewServer(session, messages, hub, cfg.Engine.ClickRateLimit)
	httpServer := &http.Server{
		Addr:              envOr("PROTOCELL_ADDR", ":8081"),
		Handler:           corsMiddleware(server.Router(collector.Handler())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 6. Start the Server
	go func() {
		log.Printf("PROTOCELL Server live on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("SIGNAL: shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}

// logNotification writes player-visible events to the server log.
func logNotification(n game.Notification) {
	switch n.Reason {
	case game.ReasonTick, game.ReasonClick:
		return
	}
	log.Printf("[%s] %s %s", n.Reason, n.Entity, n.Message)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// corsMiddleware lets a renderer served from another origin talk to the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
