package model

// FlowRecord is one entry of a window's top flows list.
type FlowRecord struct {
	SrcIP           string  `json:"src_ip"`
	SrcPort         uint16  `json:"src_port"`
	DstIP           string  `json:"dst_ip"`
	DstPort         uint16  `json:"dst_port"`
	Protocol        string  `json:"protocol"`
	PacketCount     uint64  `json:"packet_count"`
	TotalBytes      uint64  `json:"total_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	StartTimestamp  float64 `json:"start_timestamp"`
	EndTimestamp    float64 `json:"end_timestamp"`
}

// PortRecord is one entry of a window's top destination ports list.
type PortRecord struct {
	Port        uint16 `json:"port"`
	Protocol    string `json:"protocol"`
	ServiceName string `json:"service_name"`
	PacketCount uint64 `json:"packet_count"`
	TotalBytes  uint64 `json:"total_bytes"`
}

// WindowFeatureRecord is the finalized, immutable summary of one sealed window.
type WindowFeatureRecord struct {
	WindowStart float64 `json:"window_start"`
	WindowEnd   float64 `json:"window_end"`

	PacketCount   uint64  `json:"packet_count"`
	TotalBytes    uint64  `json:"total_bytes"`
	AvgPacketSize float64 `json:"avg_packet_size"`
	MinPacketSize uint64  `json:"min_packet_size"`
	MaxPacketSize uint64  `json:"max_packet_size"`
	PacketSizeStd float64 `json:"packet_size_std"`

	TCPCount   uint64  `json:"tcp_count"`
	UDPCount   uint64  `json:"udp_count"`
	ICMPCount  uint64  `json:"icmp_count"`
	OtherCount uint64  `json:"other_count"`
	TCPRatio   float64 `json:"tcp_ratio"`
	UDPRatio   float64 `json:"udp_ratio"`
	ICMPRatio  float64 `json:"icmp_ratio"`
	OtherRatio float64 `json:"other_ratio"`

	UniqueSrcIPs   uint64  `json:"unique_src_ips"`
	UniqueDstIPs   uint64  `json:"unique_dst_ips"`
	UniqueSrcRatio float64 `json:"unique_src_ratio"`
	UniqueDstRatio float64 `json:"unique_dst_ratio"`

	FlowCount      uint64  `json:"flow_count"`
	FlowRatio      float64 `json:"flow_ratio"`
	AvgFlowPackets float64 `json:"avg_flow_packets"`
	AvgFlowBytes   float64 `json:"avg_flow_bytes"`

	PacketsPerSec float64 `json:"packets_per_sec"`
	BytesPerSec   float64 `json:"bytes_per_sec"`
	PortDiversity uint64  `json:"port_diversity"`

	TCPSynCount        uint64 `json:"tcp_syn_count"`
	TCPAckCount        uint64 `json:"tcp_ack_count"`
	TCPRstCount        uint64 `json:"tcp_rst_count"`
	TCPFinCount        uint64 `json:"tcp_fin_count"`
	TCPRetransmissions uint64 `json:"tcp_retransmissions"`

	PacketSizeDistribution   map[string]uint64 `json:"packet_size_distribution"`
	FlowDurationDistribution map[string]uint64 `json:"flow_duration_distribution"`

	TopFlows []FlowRecord `json:"top_flows"`
	TopPorts []PortRecord `json:"top_ports"`
}
