package pcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"FirepowerKit/internal/engine/protocol"
	"FirepowerKit/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

// Reader reads packets from a pcap stream.
type Reader struct {
	src    *pcapgo.Reader
	closer io.Closer
}

// NewReader reads a pcap stream from r.
func NewReader(r io.Reader) (*Reader, error) {
	src, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}
	return &Reader{src: src}, nil
}

// Open creates a Reader for the pcap file at filePath.
func Open(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadPackets sends every parsable packet to out and closes out when the
// stream ends. Packets that are not IP are skipped.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.PacketInfo) error {
	defer close(out)

	packetSource := gopacket.NewPacketSource(r.src, r.src.LinkType())
	packetSource.DecodeOptions = gopacket.DecodeOptions{Lazy: true}
	skipped := 0
	for {
		packet, err := packetSource.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}

		info, err := protocol.ParsePacket(packet)
		if err != nil {
			skipped++
			continue
		}
		select {
		case out <- info:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if skipped > 0 {
		log.Debugf("Skipped %d non-IP packets", skipped)
	}
	return nil
}
