package pcap

import (
	"fmt"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"net"
	"os"
	"time"
)

var (
	synthSrcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	synthDstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// Frame describes one synthetic Ethernet frame. Protocol selects the transport;
// ARP frames ignore every IP field.
type Frame struct {
	Timestamp time.Time
	ARP       bool

	SrcIP    net.IP
	DstIP    net.IP
	Protocol layers.IPProtocol // TCP, UDP, ICMPv4 or ICMPv6
	SrcPort  uint16
	DstPort  uint16

	SYN, ACK, RST, FIN bool

	PayloadSize int
}

// Serialize encodes the frame with checksums and lengths filled in.
func (f Frame) Serialize() ([]byte, error) {
	eth := &layers.Ethernet{SrcMAC: synthSrcMAC, DstMAC: synthDstMAC}
	stack := []gopacket.SerializableLayer{eth}

	if f.ARP {
		eth.EthernetType = layers.EthernetTypeARP
		stack = append(stack, &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   synthSrcMAC,
			SourceProtAddress: []byte{10, 0, 0, 1},
			DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
			DstProtAddress:    []byte{10, 0, 0, 2},
		})
		return serialize(stack...)
	}

	var network gopacket.NetworkLayer
	if f.SrcIP.To4() != nil {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: f.Protocol, SrcIP: f.SrcIP.To4(), DstIP: f.DstIP.To4()}
		network = ip
		stack = append(stack, ip)
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: f.Protocol, SrcIP: f.SrcIP, DstIP: f.DstIP}
		network = ip
		stack = append(stack, ip)
	}

	switch f.Protocol {
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(f.SrcPort),
			DstPort: layers.TCPPort(f.DstPort),
			SYN:     f.SYN,
			ACK:     f.ACK,
			RST:     f.RST,
			FIN:     f.FIN,
			Window:  14600,
		}
		if err := tcp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		stack = append(stack, tcp)
	case layers.IPProtocolUDP:
		udp := &layers.UDP{SrcPort: layers.UDPPort(f.SrcPort), DstPort: layers.UDPPort(f.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		stack = append(stack, udp)
	case layers.IPProtocolICMPv4:
		stack = append(stack, &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1})
	case layers.IPProtocolICMPv6:
		icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0)}
		if err := icmp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		stack = append(stack, icmp)
	default:
		return nil, fmt.Errorf("unsupported synthetic protocol %v", f.Protocol)
	}

	if f.PayloadSize > 0 {
		stack = append(stack, gopacket.Payload(make([]byte, f.PayloadSize)))
	}
	return serialize(stack...)
}

func serialize(stack ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		return nil, fmt.Errorf("failed to serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

func captureInfo(ts time.Time, data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)}
}

// WriteFile writes frames to a classic pcap file at path.
func WriteFile(path string, frames []Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture %s: %w", path, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for i, fr := range frames {
		data, err := fr.Serialize()
		if err != nil {
			return err
		}
		if err := w.WritePacket(captureInfo(fr.Timestamp, data), data); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}
	return nil
}

// WriteNgFile writes frames to a pcapng file at path.
func WriteNgFile(path string, frames []Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture %s: %w", path, err)
	}
	defer f.Close()

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	if err != nil {
		return fmt.Errorf("failed to write pcapng header: %w", err)
	}
	for i, fr := range frames {
		data, err := fr.Serialize()
		if err != nil {
			return err
		}
		if err := w.WritePacket(captureInfo(fr.Timestamp, data), data); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}
	return w.Flush()
}
