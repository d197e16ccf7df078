// Command exchange runs the fenrir matching engine behind a TCP FIX
// tag=value front door.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fenrir/internal/common"
	"fenrir/internal/engine"
	"fenrir/internal/orderbook"
	"fenrir/internal/server"
)

const bookLogInterval = 30 * time.Second

func main() {
	configureLogging()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	addr, port := listenAddr()
	policy := executionPolicy()
	workers := workerCount()

	eng := engine.New(policy, common.Equities, common.Futures, common.FX)
	srv := server.New(addr, port, eng, workers)

	log.Info().Str("address", addr).Int("port", port).Msg("starting exchange")
	go srv.Run(ctx)
	go logBookPeriodically(ctx, eng)

	<-ctx.Done()
}

// logBookPeriodically gives operators top-of-book visibility in the logs
// without needing a client connected to ask for one.
func logBookPeriodically(ctx context.Context, eng *engine.Engine) {
	ticker := time.NewTicker(bookLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.LogBook()
		}
	}
}

func configureLogging() {
	level, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func listenAddr() (string, int) {
	addr := envOr("EXCHANGE_ADDR", "0.0.0.0")
	port := 9001
	if v := os.Getenv("EXCHANGE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return addr, port
}

func workerCount() int {
	v := os.Getenv("EXCHANGE_WORKERS")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Error().Str("value", v).Msg("invalid EXCHANGE_WORKERS, using default")
		return 0
	}
	return n
}

// executionPolicy wires a per-execution size ceiling from
// MAX_EXECUTION_SIZE when set; otherwise every fill is left unconstrained.
func executionPolicy() orderbook.Policy[float64, uint64] {
	v := os.Getenv("MAX_EXECUTION_SIZE")
	if v == "" {
		return orderbook.Noop[float64, uint64]
	}
	maxSize, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Error().Err(err).Str("value", v).Msg("invalid MAX_EXECUTION_SIZE, ignoring")
		return orderbook.Noop[float64, uint64]
	}
	return orderbook.Cap[float64, uint64](maxSize)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
