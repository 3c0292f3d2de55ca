package window

import (
	"WindowSpectra/internal/model"
	"strconv"
	"strings"
)

// FlowKey identifies a direction-sensitive flow within a window.
type FlowKey struct {
	SrcIP    string
	SrcPort  uint16
	DstIP    string
	DstPort  uint16
	Protocol string // "TCP" or "UDP"
}

// String renders the key as src-sport-dst-dport-proto.
func (k FlowKey) String() string {
	return strings.Join([]string{
		k.SrcIP, strconv.Itoa(int(k.SrcPort)),
		k.DstIP, strconv.Itoa(int(k.DstPort)),
		k.Protocol,
	}, "-")
}

// FlowAggregate accumulates the packets of one flow.
type FlowAggregate struct {
	PacketCount uint64
	TotalBytes  uint64
	FirstSeen   float64
	LastSeen    float64
}

// PortKey identifies a destination port per transport protocol.
type PortKey struct {
	Port     uint16
	Protocol string
}

// PortAggregate accumulates the packets sent to one destination port.
type PortAggregate struct {
	PacketCount uint64
	TotalBytes  uint64
}

// WindowState holds every window-scoped counter and table.
// A fresh value is created when a window opens and dropped once it is sealed.
type WindowState struct {
	Start float64
	End   float64

	PacketCount uint64
	TotalBytes  uint64
	Sizes       []uint64

	TCPCount   uint64
	UDPCount   uint64
	ICMPCount  uint64
	OtherCount uint64

	SrcIPs map[string]struct{}
	DstIPs map[string]struct{}

	Flows map[FlowKey]*FlowAggregate
	Ports map[PortKey]*PortAggregate

	SynCount uint64
	AckCount uint64
	RstCount uint64
	FinCount uint64
}

func newWindowState(start, end float64) *WindowState {
	return &WindowState{
		Start:  start,
		End:    end,
		SrcIPs: make(map[string]struct{}),
		DstIPs: make(map[string]struct{}),
		Flows:  make(map[FlowKey]*FlowAggregate),
		Ports:  make(map[PortKey]*PortAggregate),
	}
}

// add folds one packet into the window.
func (s *WindowState) add(p *model.Packet) Class {
	length := uint64(max(p.Length, 0))
	s.PacketCount++
	s.TotalBytes += length
	s.Sizes = append(s.Sizes, length)

	if p.Network == nil {
		s.OtherCount++
		return ClassOther
	}

	s.SrcIPs[p.Network.SrcIP] = struct{}{}
	s.DstIPs[p.Network.DstIP] = struct{}{}

	t := p.Network.Transport
	if t == nil {
		s.OtherCount++
		return ClassOther
	}

	switch t.Kind {
	case model.TransportTCP:
		s.TCPCount++
		s.trackFlow(p, t, length)
		if f := t.Flags; f != nil {
			if f.SYN {
				s.SynCount++
			}
			if f.ACK {
				s.AckCount++
			}
			if f.RST {
				s.RstCount++
			}
			if f.FIN {
				s.FinCount++
			}
		}
		return ClassTCP
	case model.TransportUDP:
		s.UDPCount++
		s.trackFlow(p, t, length)
		return ClassUDP
	case model.TransportICMP:
		s.ICMPCount++
		return ClassICMP
	default:
		s.OtherCount++
		return ClassOther
	}
}

// trackFlow updates the flow and destination-port tables for a TCP or UDP packet.
func (s *WindowState) trackFlow(p *model.Packet, t *model.Transport, length uint64) {
	proto := t.Kind.String()

	key := FlowKey{
		SrcIP:    p.Network.SrcIP,
		SrcPort:  t.SrcPort,
		DstIP:    p.Network.DstIP,
		DstPort:  t.DstPort,
		Protocol: proto,
	}
	if flow, ok := s.Flows[key]; ok {
		flow.PacketCount++
		flow.TotalBytes += length
		flow.LastSeen = p.Timestamp
	} else {
		s.Flows[key] = &FlowAggregate{
			PacketCount: 1,
			TotalBytes:  length,
			FirstSeen:   p.Timestamp,
			LastSeen:    p.Timestamp,
		}
	}

	pk := PortKey{Port: t.DstPort, Protocol: proto}
	if port, ok := s.Ports[pk]; ok {
		port.PacketCount++
		port.TotalBytes += length
	} else {
		s.Ports[pk] = &PortAggregate{PacketCount: 1, TotalBytes: length}
	}
}

// Class is the protocol bucket a packet was counted under.
type Class uint8

const (
	ClassOther Class = iota
	ClassTCP
	ClassUDP
	ClassICMP
)

// String returns the lower-case label used for metrics.
func (c Class) String() string {
	switch c {
	case ClassTCP:
		return "tcp"
	case ClassUDP:
		return "udp"
	case ClassICMP:
		return "icmp"
	default:
		return "other"
	}
}
