package window

import (
	"WindowSpectra/internal/model"
	"math"
	"slices"
)

// ratio divides a by b, returning 0 when b is 0.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// finalize turns a sealed window's raw aggregates into its feature record.
// Rates always divide by windowSize, including for a truncated last window.
func finalize(s *WindowState, windowSize float64, topN int) model.WindowFeatureRecord {
	packets := float64(s.PacketCount)
	bytes := float64(s.TotalBytes)
	flows := float64(len(s.Flows))

	rec := model.WindowFeatureRecord{
		WindowStart: s.Start,
		WindowEnd:   s.End,

		PacketCount:   s.PacketCount,
		TotalBytes:    s.TotalBytes,
		AvgPacketSize: ratio(bytes, packets),

		TCPCount:   s.TCPCount,
		UDPCount:   s.UDPCount,
		ICMPCount:  s.ICMPCount,
		OtherCount: s.OtherCount,
		TCPRatio:   ratio(float64(s.TCPCount), packets),
		UDPRatio:   ratio(float64(s.UDPCount), packets),
		ICMPRatio:  ratio(float64(s.ICMPCount), packets),
		OtherRatio: ratio(float64(s.OtherCount), packets),

		UniqueSrcIPs:   uint64(len(s.SrcIPs)),
		UniqueDstIPs:   uint64(len(s.DstIPs)),
		UniqueSrcRatio: ratio(float64(len(s.SrcIPs)), packets),
		UniqueDstRatio: ratio(float64(len(s.DstIPs)), packets),

		FlowCount:      uint64(len(s.Flows)),
		FlowRatio:      ratio(flows, packets),
		AvgFlowPackets: ratio(packets, flows),
		AvgFlowBytes:   ratio(bytes, flows),

		PacketsPerSec: ratio(packets, windowSize),
		BytesPerSec:   ratio(bytes, windowSize),
		PortDiversity: uint64(len(s.Ports)),

		TCPSynCount:        s.SynCount,
		TCPAckCount:        s.AckCount,
		TCPRstCount:        s.RstCount,
		TCPFinCount:        s.FinCount,
		TCPRetransmissions: 0, // sequence analysis is not performed

		PacketSizeDistribution:   packetSizeHistogram(s.Sizes),
		FlowDurationDistribution: flowDurationHistogram(s.Flows),

		TopFlows: topFlows(s.Flows, topN),
		TopPorts: topPorts(s.Ports, topN),
	}

	if len(s.Sizes) > 0 {
		rec.MinPacketSize = slices.Min(s.Sizes)
		rec.MaxPacketSize = slices.Max(s.Sizes)
		rec.PacketSizeStd = populationStd(s.Sizes, rec.AvgPacketSize)
	}

	return rec
}

// populationStd is the standard deviation of samples around mean, divided by n.
func populationStd(samples []uint64, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		d := float64(v) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}
