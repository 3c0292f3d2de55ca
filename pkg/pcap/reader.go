package pcap

import (
	"WindowSpectra/internal/engine/protocol"
	"WindowSpectra/internal/model"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"io"
	"os"
)

// pcapng files open with a section header block.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetDataSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Reader reads packets from a classic pcap or pcapng capture file, in file order.
type Reader struct {
	file   *os.File
	source packetDataSource
	format string
	count  uint64
}

// NewReader opens the capture at filePath. The format is chosen from the
// file's magic number, not its extension.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", filePath, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture header of %s: %w", filePath, err)
	}

	r := &Reader{file: f}
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to parse pcapng header of %s: %w", filePath, err)
		}
		r.source, r.format = ng, "pcapng"
	} else {
		classic, err := pcapgo.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to parse pcap header of %s: %w", filePath, err)
		}
		r.source, r.format = classic, "pcap"
	}
	return r, nil
}

// Format reports "pcap" or "pcapng".
func (r *Reader) Format() string {
	return r.format
}

// Count returns the number of packets read so far.
func (r *Reader) Count() uint64 {
	return r.count
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Next returns the next packet, or io.EOF once the capture is exhausted.
// A truncated or corrupt record is returned as an error.
func (r *Reader) Next() (*model.Packet, error) {
	data, ci, err := r.source.ReadPacketData()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read packet %d: %w", r.count+1, err)
	}
	r.count++
	return protocol.ParseData(data, r.source.LinkType(), ci), nil
}

// ReadPackets streams every packet of the capture to out and closes out when
// done. Packets keep their file order. It stops early with ctx.Err() when ctx
// is cancelled.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.Packet) error {
	defer close(out)
	for {
		p, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case out <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
