package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FirepowerKit/internal/chstore"
	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/logging"
	"FirepowerKit/internal/snort"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"
)

type args struct {
	Bytes       bool     `arg:"-b,--bytes" help:"display only the bytes"`
	UDP         bool     `arg:"-u,--udp" help:"UDP ports"`
	TCP         bool     `arg:"-t,--tcp" help:"TCP ports"`
	ICMP        bool     `arg:"-i,--icmp" help:"ICMP types"`
	Performance bool     `arg:"-p,--performance" help:"rule performance information (default)"`
	Threshold   int      `arg:"-T,--threshold" help:"top N statistics"`
	MinPercent  float64  `arg:"-m,--min-percent" help:"only include data above this percentage"`
	Mode        string   `arg:"--mode" default:"text" help:"output mode: text, csv, csv_all or sql"`
	Year        int      `arg:"--year" help:"year of the syslog timestamps (default: current year)"`
	ClickHouse  bool     `arg:"--clickhouse" help:"also store rule profiles in ClickHouse (snort.clickhouse)"`
	Config      string   `arg:"-c,--config" default:"configs/config.yaml" help:"path to the YAML config"`
	Files       []string `arg:"positional,required" placeholder:"FILE"`
}

func (args) Description() string {
	return "Reports expensive Snort rules and flow port statistics from syslog files.\n\n" +
		"Example, the top 5 UDP and TCP ports:\n  snort-analyze -u -t -T 5 messages"
}

func main() {
	var a args
	arg.MustParse(&a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, a, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatErrorLine(err))
		os.Exit(cli.ExitCodeFor(err))
	}
}

func run(ctx context.Context, a args, stdout, stderr io.Writer) error {
	cfg, _, err := config.LoadConfigOrDefault(a.Config)
	if err != nil {
		return cli.Wrap(cli.ErrInput, "invalid configuration", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		return cli.Wrap(cli.ErrIO, "failed to set up logging", err)
	}

	mode, err := snort.ParseMode(a.Mode)
	if err != nil {
		return cli.Wrap(cli.ErrUsage, "invalid --mode", err)
	}
	if a.Year == 0 {
		a.Year = time.Now().Year()
	}
	opts := snort.Options{
		Bytes:       a.Bytes,
		UDP:         a.UDP,
		TCP:         a.TCP,
		ICMP:        a.ICMP,
		Performance: a.Performance,
		Threshold:   a.Threshold,
		MinPercent:  a.MinPercent,
		Mode:        mode,
		Limits: snort.Limits{
			Pct:     cfg.Snort.PctLimit,
			Nomatch: cfg.Snort.NomatchLimit,
			Match:   cfg.Snort.MatchLimit,
		},
	}

	var sink *snort.Sink
	if a.ClickHouse {
		conn, err := chstore.Connect(ctx, cfg.Snort.ClickHouse)
		if err != nil {
			return cli.Wrap(cli.ErrIO, "failed to connect to ClickHouse", err)
		}
		defer conn.Close()
		if sink, err = snort.NewSink(ctx, conn); err != nil {
			return cli.Wrap(cli.ErrIO, "failed to prepare ClickHouse", err)
		}
	}

	emitter := snort.NewEmitter(stdout, stderr, opts)
	defer emitter.Flush()

	for _, path := range a.Files {
		if err := analyzeFile(ctx, path, a.Year, emitter, sink); err != nil {
			return err
		}
	}
	return nil
}

func analyzeFile(ctx context.Context, path string, year int, emitter *snort.Emitter, sink *snort.Sink) error {
	f, err := os.Open(path)
	if err != nil {
		return cli.Wrap(cli.ErrInput, "failed to open log file", err)
	}
	defer f.Close()

	procs, err := snort.Parse(ctx, f, year)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return cli.Wrap(cli.ErrInput, "failed to parse "+path, err)
	}
	log.Debugf("%s: %d snort processes", path, len(procs))

	for _, p := range procs {
		evals := emitter.Process(p)
		if sink != nil {
			if err := sink.Store(ctx, p, evals); err != nil {
				return cli.Wrap(cli.ErrIO, "failed to store rule profiles", err)
			}
		}
	}
	return nil
}
