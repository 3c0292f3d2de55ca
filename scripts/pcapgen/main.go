package main

import (
	"WindowSpectra/pkg/pcap"
	"flag"
	"log"
	"math/rand"
	"net"
	"time"

	"github.com/google/gopacket/layers"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output capture file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	duration := flag.Duration("d", time.Minute, "Time span the packets are spread over")
	ng := flag.Bool("ng", false, "Write pcapng instead of classic pcap")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	base := time.Now().Truncate(time.Second)
	step := *duration / time.Duration(max(*packetCount, 1))

	log.Printf("Generating %d packets over %s into %s...", *packetCount, *duration, *outputFile)

	// A small pool of hosts and services so flows repeat within a window.
	hosts := make([]net.IP, 32)
	for i := range hosts {
		hosts[i] = net.IPv4(10, 0, byte(rng.Intn(4)), byte(rng.Intn(254)+1))
	}
	services := []uint16{22, 53, 80, 123, 443, 3306, 8080}

	frames := make([]pcap.Frame, 0, *packetCount)
	for i := 0; i < *packetCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}

		f := pcap.Frame{
			Timestamp:   base.Add(time.Duration(i) * step),
			SrcIP:       hosts[rng.Intn(len(hosts))],
			DstIP:       hosts[rng.Intn(len(hosts))],
			SrcPort:     uint16(rng.Intn(65535-1024) + 1024),
			DstPort:     services[rng.Intn(len(services))],
			PayloadSize: rng.Intn(1400),
		}
		switch r := rng.Intn(100); {
		case r < 70:
			f.Protocol = layers.IPProtocolTCP
			f.SYN = rng.Intn(10) == 0
			f.ACK = !f.SYN
			f.FIN = rng.Intn(50) == 0
			f.RST = rng.Intn(100) == 0
		case r < 90:
			f.Protocol = layers.IPProtocolUDP
		case r < 97:
			f.Protocol = layers.IPProtocolICMPv4
			f.PayloadSize = 56
		default:
			f.ARP = true
		}
		frames = append(frames, f)
	}

	write := pcap.WriteFile
	if *ng {
		write = pcap.WriteNgFile
	}
	if err := write(*outputFile, frames); err != nil {
		log.Fatalf("Failed to write capture: %v", err)
	}
	log.Printf("Successfully generated %d packets in %s", len(frames), *outputFile)
}
