package window

// bucket is an inclusive upper bound and the label it is reported under.
// The last bucket of a set catches everything above the previous bound.
type bucket struct {
	label string
	upper float64
}

var packetSizeBuckets = []bucket{
	{"64", 64},
	{"128", 128},
	{"256", 256},
	{"512", 512},
	{"1024", 1024},
	{"1500", 0}, // catch-all
}

var flowDurationBuckets = []bucket{
	{"0-5", 5},
	{"5-10", 10},
	{"10-20", 20},
	{"20-30", 30},
	{"30+", 0}, // catch-all
}

// PacketSizeLabels returns the packet-size histogram labels in bucket order.
func PacketSizeLabels() []string { return labels(packetSizeBuckets) }

// FlowDurationLabels returns the flow-duration histogram labels in bucket order.
func FlowDurationLabels() []string { return labels(flowDurationBuckets) }

func labels(buckets []bucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.label
	}
	return out
}

// newHistogram returns a histogram with every label present at zero.
func newHistogram(buckets []bucket) map[string]uint64 {
	h := make(map[string]uint64, len(buckets))
	for _, b := range buckets {
		h[b.label] = 0
	}
	return h
}

func bucketFor(buckets []bucket, v float64) string {
	last := len(buckets) - 1
	for _, b := range buckets[:last] {
		if v <= b.upper {
			return b.label
		}
	}
	return buckets[last].label
}

// packetSizeHistogram counts every size sample into exactly one bucket.
func packetSizeHistogram(sizes []uint64) map[string]uint64 {
	h := newHistogram(packetSizeBuckets)
	for _, size := range sizes {
		h[bucketFor(packetSizeBuckets, float64(size))]++
	}
	return h
}

// flowDurationHistogram counts one entry per flow, keyed on max(0, last - first).
func flowDurationHistogram(flows map[FlowKey]*FlowAggregate) map[string]uint64 {
	h := newHistogram(flowDurationBuckets)
	for _, flow := range flows {
		h[bucketFor(flowDurationBuckets, max(0, flow.LastSeen-flow.FirstSeen))]++
	}
	return h
}
