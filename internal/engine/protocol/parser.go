package protocol

import (
	"WindowSpectra/internal/model"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"time"
)

// ParsePacket extracts the fields the window engine needs from a decoded packet.
// Frames without an IPv4 or IPv6 layer come back with a nil Network, and an IP
// packet whose transport is not TCP, UDP or ICMP carries a nil Transport. The
// parser never fails: anything it cannot classify is counted as "other".
func ParsePacket(packet gopacket.Packet) *model.Packet {
	p := &model.Packet{
		Length: len(packet.Data()),
	}

	if meta := packet.Metadata(); meta != nil {
		p.Timestamp = toSeconds(meta.Timestamp)
	}

	var network *model.NetworkInfo
	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		network = &model.NetworkInfo{SrcIP: ip.SrcIP.String(), DstIP: ip.DstIP.String()}
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		network = &model.NetworkInfo{SrcIP: ip.SrcIP.String(), DstIP: ip.DstIP.String()}
	} else {
		return p
	}
	p.Network = network

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		network.Transport = &model.Transport{
			Kind:    model.TransportTCP,
			SrcPort: uint16(tcp.SrcPort),
			DstPort: uint16(tcp.DstPort),
			Flags: &model.TCPFlags{
				SYN: tcp.SYN,
				ACK: tcp.ACK,
				RST: tcp.RST,
				FIN: tcp.FIN,
			},
		}
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		network.Transport = &model.Transport{
			Kind:    model.TransportUDP,
			SrcPort: uint16(udp.SrcPort),
			DstPort: uint16(udp.DstPort),
		}
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil || packet.Layer(layers.LayerTypeICMPv6) != nil {
		network.Transport = &model.Transport{Kind: model.TransportICMP}
	}

	return p
}

// ParseData decodes a raw frame of the given link type and parses it.
func ParseData(data []byte, linkType gopacket.Decoder, ci gopacket.CaptureInfo) *model.Packet {
	packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	md := packet.Metadata()
	md.CaptureInfo = ci
	return ParsePacket(packet)
}

// toSeconds converts a capture timestamp to fractional Unix seconds.
func toSeconds(ts time.Time) float64 {
	if ts.IsZero() {
		return 0
	}
	return float64(ts.Unix()) + float64(ts.Nanosecond())/float64(time.Second)
}
