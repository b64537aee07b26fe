package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"FirepowerKit/internal/model"
	"FirepowerKit/pkg/pcap"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"
)

type args struct {
	Input  string        `arg:"positional,required" placeholder:"PCAP"`
	Output string        `arg:"-o" default:"flow-ip-stats-1.csv" help:"csv file to write"`
	Period time.Duration `arg:"-p" default:"1s" help:"length of one time period"`
}

func (args) Description() string {
	return "Converts a pcap capture into flow-ip-stats csv intervals."
}

func main() {
	var a args
	arg.MustParse(&a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := convert(ctx, a); err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
}

func convert(ctx context.Context, a args) error {
	reader, err := pcap.Open(a.Input)
	if err != nil {
		return err
	}
	defer reader.Close()

	f, err := os.Create(a.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", a.Output, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	fw := pcap.NewFlowWriter(bw, a.Period)
	count, err := feed(ctx, reader.ReadPackets, fw.Add)
	if err != nil {
		return err
	}
	if err := fw.Flush(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", a.Output, err)
	}

	if n := fw.Skipped(); n > 0 {
		log.Warnf("Skipped %d non-IPv4 packets", n)
	}
	log.Infof("Wrote %d intervals from %d packets to %s", fw.Intervals(), count, a.Output)
	return nil
}

// feed runs read in its own goroutine and hands every packet to add. When
// add fails, read is cancelled and the channel drained so the goroutine exits.
func feed(ctx context.Context, read func(context.Context, chan<- *model.PacketInfo) error, add func(*model.PacketInfo) error) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	packets := make(chan *model.PacketInfo, 1024)
	readErr := make(chan error, 1)
	go func() { readErr <- read(ctx, packets) }()

	count := 0
	var addErr error
	for p := range packets {
		if addErr != nil {
			continue
		}
		if addErr = add(p); addErr != nil {
			cancel()
			continue
		}
		count++
	}
	err := <-readErr
	if addErr != nil {
		return count, addErr
	}
	return count, err
}
