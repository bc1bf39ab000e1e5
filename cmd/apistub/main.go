// Command apistub runs the in-memory product API double for local
// console development.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resumedesk.org/internal/apistub"
)

func main() {
	addr := os.Getenv("APISTUB_ADDR")
	if addr == "" {
		addr = ":5000"
	}
	secret := os.Getenv("APISTUB_JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}

	stub := apistub.New(secret)

	srv := &http.Server{
		Addr:              addr,
		Handler:           stub.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting product API stub on %s (login root@resumedesk.org / changeme)", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
