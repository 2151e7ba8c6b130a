package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devotions.gg/internal/config"
	"devotions.gg/internal/sim/tuning"
	"devotions.gg/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	env, err := config.LoadServerEnv()
	if err != nil {
		logger.Fatalf("env: %v", err)
	}

	var (
		addr       = flag.String("addr", env.Addr, "http listen address")
		worldID    = flag.String("world", env.WorldID, "world id")
		dataDir    = flag.String("data", env.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", env.TuningPath, "path to tuning.yaml (empty: built-in defaults)")
		disableDB  = flag.Bool("disable_db", env.DisableDB, "disable the sqlite audit index")
		starter    = flag.Bool("starter_area", env.Starter, "populate crops, villagers and cows around spawn")
	)
	flag.Parse()
	env.Addr = *addr
	env.WorldID = *worldID
	env.DataDir = *dataDir
	env.TuningPath = *tuningPath
	env.DisableDB = *disableDB
	env.Starter = *starter

	tune, err := tuning.Load(env.TuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", env.TuningPath)
		tune = tuning.Defaults()
	}

	rt, err := buildRuntime(env, tune, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := rt.world.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "# HELP devotions_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE devotions_world_tick gauge\n")
		fmt.Fprintf(rw, "devotions_world_tick{world=%q} %d\n", env.WorldID, rt.world.CurrentTick())
		if rt.index != nil {
			st := rt.index.Stats()
			fmt.Fprintf(rw, "# HELP devotions_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE devotions_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "devotions_index_queue_depth{world=%q} %d\n", env.WorldID, st.QueueDepth)
			fmt.Fprintf(rw, "# HELP devotions_index_dropped_total Index writes dropped under backpressure.\n")
			fmt.Fprintf(rw, "# TYPE devotions_index_dropped_total counter\n")
			fmt.Fprintf(rw, "devotions_index_dropped_total{world=%q,kind=%q} %d\n", env.WorldID, "audit", st.DropAuditTotal)
			fmt.Fprintf(rw, "devotions_index_dropped_total{world=%q,kind=%q} %d\n", env.WorldID, "favor", st.DropFavorTotal)
		}
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(rt.world, logger).Handler())

	srv := &http.Server{
		Addr:              env.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s tick_rate=%d", env.Addr, env.WorldID, tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	<-worldDone
	if err := rt.Close(); err != nil {
		logger.Printf("close: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
