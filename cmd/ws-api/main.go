package main

import (
	"WindowSpectra/internal/api"
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/engine/manager"
	"WindowSpectra/internal/ingest"
	"WindowSpectra/internal/metrics"
	"WindowSpectra/internal/query"
	"WindowSpectra/internal/rpc"
	"WindowSpectra/internal/store"
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Session store
	st, err := store.Open(cfg.API.SessionDB)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer st.Close()

	// Extraction pipeline
	mgr, err := manager.NewManager(cfg, m)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer mgr.Close()

	svc, err := ingest.NewService(cfg.API.UploadDir, cfg.API.MaxUploadSizeMB, st, mgr)
	if err != nil {
		log.Fatalf("Failed to create ingest service: %v", err)
	}

	// Optional ClickHouse querier
	var querier query.Querier
	if cfg.API.ClickHouse.Host != "" {
		querier, err = query.NewClickHouseQuerier(cfg.API.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create querier: %v", err)
		}
		log.Printf("ClickHouse query routes enabled (%s:%d).", cfg.API.ClickHouse.Host, cfg.API.ClickHouse.Port)
	}

	// Run gRPC server
	grpcServer := grpc.NewServer()
	rpc.RegisterFeatureServiceServer(grpcServer, rpc.NewServer(mgr, st))

	lis, err := net.Listen("tcp", cfg.API.GRPCListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.API.GRPCListenAddr, err)
	}
	go func() {
		log.Printf("gRPC API server starting on %s", cfg.API.GRPCListenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Run HTTP server
	httpServer := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: api.NewHandler(svc, st, querier, reg).Router(),
	}
	go func() {
		log.Printf("HTTP API server starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", httpServer.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Servers shutting down...")

	grpcServer.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}
	log.Println("All servers exited.")
}
