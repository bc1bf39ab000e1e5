package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"

	"resumedesk.org/internal/config"
	"resumedesk.org/internal/console"
	"resumedesk.org/internal/obs"
	"resumedesk.org/internal/session"
	"resumedesk.org/internal/upstream"
)

var (
	version = "0.4.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Redis-backed sessions survive restarts; without it a restart logs
	// everyone out, which is acceptable for a staff tool in dev.
	var backing scs.Store
	var redisClient *redis.Client
	if cfg.UseRedisSessions() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping: %v", err)
		}
		cancel()
		backing = goredisstore.New(redisClient)
	}

	sessions := session.NewStore(cfg.SessionLifetime, cfg.CookieSecure, backing)

	up := upstream.New(cfg.UpstreamURL, &http.Client{Timeout: cfg.UpstreamTimeout}, sessions.Token,
		func(ctx context.Context) {
			_ = sessions.Clear(ctx)
		})

	api := console.New(sessions, up, console.Options{
		Version:         version,
		LoginRatePerSec: cfg.LoginRatePerSec,
		LoginRateBurst:  cfg.LoginRateBurst,
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting resumedesk-console %s on %s (upstream %s)", version, cfg.Addr, cfg.UpstreamURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Println("Stopped")
}
