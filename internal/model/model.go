package model

import "fmt"

// TransportKind identifies the transport protocol carried by an IP packet.
type TransportKind uint8

const (
	TransportOther TransportKind = iota
	TransportTCP
	TransportUDP
	TransportICMP
)

// String returns the protocol tag used in flow and port keys.
func (k TransportKind) String() string {
	switch k {
	case TransportTCP:
		return "TCP"
	case TransportUDP:
		return "UDP"
	case TransportICMP:
		return "ICMP"
	default:
		return "OTHER"
	}
}

// TCPFlags holds the subset of TCP control bits that are tallied per window.
type TCPFlags struct {
	SYN bool
	ACK bool
	RST bool
	FIN bool
}

// Transport holds the decoded transport header of a packet.
type Transport struct {
	Kind    TransportKind
	SrcPort uint16
	DstPort uint16
	Flags   *TCPFlags // only set for TCP
}

// NetworkInfo holds the decoded IP header of a packet.
// Addresses are kept in their string form so IPv4 and IPv6 are handled alike.
type NetworkInfo struct {
	SrcIP     string
	DstIP     string
	Transport *Transport // nil when the IP payload is not TCP, UDP or ICMP
}

// Packet is a single decoded packet handed to the window engine.
type Packet struct {
	Timestamp float64 // seconds since the epoch, fractional
	Length    int     // bytes on the wire as captured
	Network   *NetworkInfo
}

// String renders a one-line summary of the packet for logs and the probe tool.
func (p *Packet) String() string {
	if p.Network == nil {
		return fmt.Sprintf("%.6f non-ip len=%d", p.Timestamp, p.Length)
	}
	if p.Network.Transport == nil {
		return fmt.Sprintf("%.6f %s -> %s len=%d", p.Timestamp, p.Network.SrcIP, p.Network.DstIP, p.Length)
	}
	t := p.Network.Transport
	return fmt.Sprintf("%.6f %s:%d -> %s:%d proto=%s len=%d",
		p.Timestamp, p.Network.SrcIP, t.SrcPort, p.Network.DstIP, t.DstPort, t.Kind, p.Length)
}
