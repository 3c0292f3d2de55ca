package codec

import (
	"WindowSpectra/internal/model"
	"testing"
)

func TestEnvelopeWireFormat(t *testing.T) {
	env := Envelope{
		SessionID: "abc",
		Source:    "capture.pcap",
		WindowID:  3,
		Record: model.WindowFeatureRecord{
			WindowStart:            115,
			WindowEnd:              125,
			PacketCount:            2,
			TotalBytes:             1460,
			TCPRatio:               1,
			PacketSizeDistribution: map[string]uint64{"64": 1, "128": 0, "1500": 1},
			TopFlows: []model.FlowRecord{
				{SrcIP: "10.0.0.1", SrcPort: 40000, DstIP: "10.0.0.2", DstPort: 80, Protocol: "TCP", PacketCount: 2, TotalBytes: 1460, DurationSeconds: 5},
			},
		},
	}

	data, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("MarshalEnvelope failed: %v", err)
	}
	got, err := UnmarshalEnvelope(data)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope failed: %v", err)
	}

	if got.SessionID != "abc" || got.Source != "capture.pcap" || got.WindowID != 3 {
		t.Errorf("unexpected metadata: %+v", got)
	}
	rec := got.Record
	if rec.WindowStart != 115 || rec.TotalBytes != 1460 || rec.TCPRatio != 1 {
		t.Errorf("unexpected record scalars: %+v", rec)
	}
	if rec.PacketSizeDistribution["1500"] != 1 || len(rec.PacketSizeDistribution) != 3 {
		t.Errorf("histogram not preserved: %v", rec.PacketSizeDistribution)
	}
	if len(rec.TopFlows) != 1 || rec.TopFlows[0].DstPort != 80 {
		t.Errorf("top flows not preserved: %+v", rec.TopFlows)
	}
}

func TestUnmarshalEnvelope_Invalid(t *testing.T) {
	if _, err := UnmarshalEnvelope([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Error("Expected an error for garbage bytes")
	}
}
