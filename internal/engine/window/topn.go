package window

import (
	"WindowSpectra/internal/model"
	"cmp"
	"slices"
)

// DefaultTopN is the number of flows and ports kept per window.
const DefaultTopN = 10

var wellKnownServices = map[uint16]string{
	80:   "HTTP",
	443:  "HTTPS",
	53:   "DNS",
	22:   "SSH",
	25:   "SMTP",
	110:  "POP3",
	143:  "IMAP",
	3389: "RDP",
	3306: "MySQL",
	5432: "Postgres",
}

// ServiceName resolves a destination port to its well-known service name.
func ServiceName(port uint16) string {
	if name, ok := wellKnownServices[port]; ok {
		return name
	}
	return "Unknown"
}

// topFlows ranks flows by total bytes, descending, and keeps the first n.
// Equal byte counts fall back to packet count and then the flow key so the
// order does not depend on map iteration.
func topFlows(flows map[FlowKey]*FlowAggregate, n int) []model.FlowRecord {
	type entry struct {
		key FlowKey
		agg *FlowAggregate
	}
	entries := make([]entry, 0, len(flows))
	for k, v := range flows {
		entries = append(entries, entry{k, v})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.agg.TotalBytes, a.agg.TotalBytes); c != 0 {
			return c
		}
		if c := cmp.Compare(b.agg.PacketCount, a.agg.PacketCount); c != 0 {
			return c
		}
		return cmp.Compare(a.key.String(), b.key.String())
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	out := make([]model.FlowRecord, len(entries))
	for i, e := range entries {
		out[i] = model.FlowRecord{
			SrcIP:           e.key.SrcIP,
			SrcPort:         e.key.SrcPort,
			DstIP:           e.key.DstIP,
			DstPort:         e.key.DstPort,
			Protocol:        e.key.Protocol,
			PacketCount:     e.agg.PacketCount,
			TotalBytes:      e.agg.TotalBytes,
			DurationSeconds: e.agg.LastSeen - e.agg.FirstSeen,
			StartTimestamp:  e.agg.FirstSeen,
			EndTimestamp:    e.agg.LastSeen,
		}
	}
	return out
}

// topPorts ranks destination ports by total bytes, descending, and keeps the first n.
func topPorts(ports map[PortKey]*PortAggregate, n int) []model.PortRecord {
	out := make([]model.PortRecord, 0, len(ports))
	for k, v := range ports {
		out = append(out, model.PortRecord{
			Port:        k.Port,
			Protocol:    k.Protocol,
			ServiceName: ServiceName(k.Port),
			PacketCount: v.PacketCount,
			TotalBytes:  v.TotalBytes,
		})
	}
	slices.SortFunc(out, func(a, b model.PortRecord) int {
		if c := cmp.Compare(b.TotalBytes, a.TotalBytes); c != 0 {
			return c
		}
		if c := cmp.Compare(b.PacketCount, a.PacketCount); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Port, b.Port); c != 0 {
			return c
		}
		return cmp.Compare(a.Protocol, b.Protocol)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
