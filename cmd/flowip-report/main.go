package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FirepowerKit/internal/cli"

	"github.com/alexflint/go-arg"
)

type args struct {
	DEDir        string `arg:"-d" placeholder:"DIR" help:"detection engine directory for CPU affinity info"`
	File         string `arg:"-f" placeholder:"FILE" help:"analyze a single csv file instead of a directory"`
	PairLimit    int    `arg:"-p" help:"pairs shown per class and instance (default: flow_report.pair_limit)"`
	SummaryLimit int    `arg:"-s" help:"hosts shown in the summary (default: flow_report.summary_limit)"`
	Threads      int    `arg:"-t" help:"number of files processed at once, 1 to 5 (default: flow_report.max_workers)"`

	Dir       string `arg:"--dir" default:"." help:"directory holding flow-ip-stats-#.csv files"`
	Data      int    `arg:"--data" help:"data to include: 1 tcp, 2 udp, 3 other, 4 all"`
	TCPSort   string `arg:"--tcp-sort" help:"tcp sort key"`
	UDPSort   string `arg:"--udp-sort" help:"udp sort key"`
	OtherSort string `arg:"--other-sort" help:"other sort key"`
	Limit     *int   `arg:"--limit" help:"top talkers kept per time period, 0 for the default"`
	Report    string `arg:"-o,--report" help:"report file name"`
	Yes       bool   `arg:"-y,--yes" help:"never prompt, use defaults for anything not given"`
	Render    string `arg:"--render" placeholder:"DIR" help:"render a saved report snapshot instead of analyzing csv files"`
	Config    string `arg:"-c,--config" default:"configs/config.yaml" help:"path to the YAML config"`
}

func (args) Description() string {
	return "Builds a top talker report from flow-ip-stats-#.csv files exported by perfmon."
}

func main() {
	var a args
	arg.MustParse(&a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, a, os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatErrorLine(err))
		os.Exit(cli.ExitCodeFor(err))
	}
}
