package main

import (
	"WindowSpectra/internal/writer"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <run_dir>")
		os.Exit(1)
	}
	runDir := os.Args[1]

	summary, err := writer.ReadSummary(runDir)
	if err != nil {
		log.Fatalf("Failed to read summary: %v", err)
	}
	records, err := writer.ReadGobFile(filepath.Join(runDir, "windows.dat"))
	if err != nil {
		log.Fatalf("Failed to decode gob data: %v", err)
	}

	fmt.Printf("Session %s (%s): %d windows, %d packets, %d bytes\n",
		summary.SessionID, summary.Source, summary.TotalWindows, summary.TotalPackets, summary.TotalBytes)
	fmt.Printf("%4s %16s %16s %8s %10s %6s %6s %6s %6s\n", "#", "start", "end", "pkts", "bytes", "flows", "tcp", "udp", "icmp")
	for i, rec := range records {
		fmt.Printf("%4d %16.3f %16.3f %8d %10d %6d %6.2f %6.2f %6.2f\n",
			i+1, rec.WindowStart, rec.WindowEnd, rec.PacketCount, rec.TotalBytes, rec.FlowCount,
			rec.TCPRatio, rec.UDPRatio, rec.ICMPRatio)
	}
}
