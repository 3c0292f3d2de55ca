package main

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/engine/manager"
	"WindowSpectra/internal/model"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// 1. Parse flags
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	windowSize := flag.Float64("window", 0, "Window size in seconds (overrides the config)")
	topN := flag.Int("top", -1, "Flows and ports kept per window (overrides the config)")
	outDir := flag.String("out", "", "Write only a JSON feature file into this directory")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <capture.pcap|capture.pcapng>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *windowSize != 0 {
		cfg.Extractor.WindowSize = *windowSize
	}
	if *topN >= 0 {
		cfg.Extractor.TopN = *topN
	}
	if *outDir != "" {
		cfg.Writers = []config.WriterDef{{Type: "json", Enabled: true, JSON: config.FileConfig{RootPath: *outDir}}}
	}
	log.Printf("Configuration loaded, window size %gs, top %d.", cfg.Extractor.WindowSize, cfg.Extractor.TopN)

	// 3. Initialize the manager and its writers
	mgr, err := manager.NewManager(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer mgr.Close()
	log.Printf("Manager initialized with writers %v.", mgr.Writers())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Extract every capture in turn
	failed := 0
	for _, path := range flag.Args() {
		res, err := mgr.RunFile(ctx, path, model.RunMeta{StartedAt: time.Now()})
		if err != nil {
			log.Printf("Failed to extract %s: %v", path, err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Printf("%s: session %s, %d packets, %d windows, %s\n",
			path, res.Meta.SessionID, res.Packets, len(res.Records), res.Elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		mgr.Close()
		log.Fatalf("%d of %d captures failed.", failed, flag.NArg())
	}
	log.Println("Extraction complete.")
}
