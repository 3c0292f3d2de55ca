package main

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/probe"
	"WindowSpectra/internal/probe/persistent"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	quiet := flag.Bool("quiet", false, "Do not print received windows")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Starting ws-probe in SUBSCRIBER mode...")

	var worker *persistent.Worker
	if cfg.Probe.Persistence.Enabled {
		worker, err = persistent.NewWorker(cfg.Probe.Persistence)
		if err != nil {
			log.Fatalf("Failed to start persistent worker: %v", err)
		}
	}

	// Create a new subscriber
	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}

	// Define the handler function for received windows
	handler := func(env codec.Envelope) {
		if !*quiet {
			rec := env.Record
			log.Printf("Received window %d of session %s: [%.3f, %.3f) %d packets, %d bytes, %d flows",
				env.WindowID, env.SessionID, rec.WindowStart, rec.WindowEnd, rec.PacketCount, rec.TotalBytes, rec.FlowCount)
		}
		if worker != nil {
			worker.Enqueue(env)
		}
	}

	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// Wait for a shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")

	sub.Close()
	if worker != nil {
		dropped, err := worker.Stop()
		if err != nil {
			log.Printf("Error stopping persistent worker: %v", err)
		}
		if dropped > 0 {
			log.Printf("%d windows were dropped because the worker could not keep up.", dropped)
		}
	}
}
