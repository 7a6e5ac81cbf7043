package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mexcbot/config"
	"mexcbot/internal/gateway"
	redisstore "mexcbot/internal/store/redis"
)

var processStart = time.Now()

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[gateway] starting...")

	cfg := config.Load()

	symbols := parseList(getEnv("GATEWAY_SYMBOLS", cfg.Symbol))
	intervals := parseList(getEnv("GATEWAY_INTERVALS", cfg.KlineInterval))
	log.Printf("[gateway] symbols=%v intervals=%v", symbols, intervals)

	reader, err := redisstore.NewReader(redisstore.ReaderConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[gateway] redis connection failed: %v", err)
	}
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := gateway.NewHub(reader.Client(), symbols, intervals)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, reader, processStart)
	srv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.StartStatsBroadcast(gctx, processStart)
		return nil
	})
	g.Go(func() error {
		log.Printf("[gateway] serving at http://localhost%s", cfg.GatewayAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[gateway] shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[gateway] exit: %v", err)
	}
	log.Println("[gateway] shutdown complete.")
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
