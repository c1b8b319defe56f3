package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reunion_archive/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := http.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
