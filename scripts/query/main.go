package main

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/rpc"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func main() {
	// Command-line flags
	serverAddr := flag.String("addr", "localhost:50051", "The gRPC server address")
	mode := flag.String("mode", "health", "Query mode: 'health', 'sessions', 'extract' or 'windows'")
	pcapPath := flag.String("pcap", "", "Capture path on the server (extract mode)")
	sessionID := flag.String("session", "", "Session id (windows mode)")
	status := flag.String("status", "", "Session status filter (sessions mode)")
	limit := flag.Int("limit", 20, "Maximum sessions to list")
	timeout := flag.Duration("timeout", 5*time.Minute, "Request timeout")
	flag.Parse()

	// Set up a connection to the server.
	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	defer conn.Close()

	client := rpc.NewFeatureServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "health":
		resp, err := client.Health(ctx, &structpb.Struct{})
		if err != nil {
			log.Fatalf("could not check health: %v", err)
		}
		fmt.Println(protojson.Format(resp))
	case "sessions":
		req, _ := structpb.NewStruct(map[string]any{"status": *status, "limit": *limit})
		resp, err := client.ListSessions(ctx, req)
		if err != nil {
			log.Fatalf("could not list sessions: %v", err)
		}
		fmt.Println(protojson.Format(resp))
	case "extract":
		if *pcapPath == "" {
			log.Fatal("Error: -pcap flag is required for extract mode")
		}
		req, _ := structpb.NewStruct(map[string]any{"pcap_path": *pcapPath})
		stream, err := client.ExtractWindows(ctx, req)
		if err != nil {
			log.Fatalf("could not start extraction: %v", err)
		}
		printWindows(stream)
	case "windows":
		if *sessionID == "" {
			log.Fatal("Error: -session flag is required for windows mode")
		}
		req, _ := structpb.NewStruct(map[string]any{"session_id": *sessionID})
		stream, err := client.SessionWindows(ctx, req)
		if err != nil {
			log.Fatalf("could not fetch windows: %v", err)
		}
		printWindows(stream)
	default:
		log.Fatalf("Unknown mode: %s. Use 'health', 'sessions', 'extract' or 'windows'", *mode)
	}
}

// printWindows prints one line per streamed window.
func printWindows(stream grpc.ServerStreamingClient[structpb.Struct]) {
	count := 0
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("stream failed after %d windows: %v", count, err)
		}
		env, err := codec.StructToEnvelope(msg)
		if err != nil {
			log.Fatalf("bad window message: %v", err)
		}
		rec := env.Record
		fmt.Printf("%s #%d [%.3f, %.3f) packets=%d bytes=%d flows=%d pps=%.2f Bps=%.2f\n",
			env.SessionID, env.WindowID, rec.WindowStart, rec.WindowEnd,
			rec.PacketCount, rec.TotalBytes, rec.FlowCount, rec.PacketsPerSec, rec.BytesPerSec)
		count++
	}
	log.Printf("Received %d windows.", count)
}
