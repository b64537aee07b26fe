package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/deinfo"
	"FirepowerKit/internal/engine/manager"
	"FirepowerKit/internal/factory"
	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/logging"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/netmap"
	"FirepowerKit/internal/report"
	"FirepowerKit/internal/snapshot"
	"FirepowerKit/internal/writer"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxThreads = 5

var defaultKeys = map[flowip.Class]flowip.Field{
	flowip.ClassTCP:   flowip.FieldTCPBytes,
	flowip.ClassUDP:   flowip.FieldUDPBytes,
	flowip.ClassOther: flowip.FieldOtherBytes,
}

// session carries the answers gathered for one report run.
type session struct {
	a      args
	cfg    *config.Config
	prompt *flowip.Prompter
	out    io.Writer
	errw   io.Writer
}

func run(ctx context.Context, a args, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, _, err := config.LoadConfigOrDefault(a.Config)
	if err != nil {
		return cli.Wrap(cli.ErrInput, "invalid configuration", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		return cli.Wrap(cli.ErrIO, "failed to set up logging", err)
	}
	if err := validateArgs(a); err != nil {
		return cli.Wrap(cli.ErrUsage, "invalid arguments", err)
	}

	if a.Render != "" {
		return renderSnapshot(a, stdout)
	}

	s := &session{a: a, cfg: cfg, prompt: flowip.NewPrompter(stdin, stdout), out: stdout, errw: stderr}

	path, err := s.reportPath()
	if err != nil {
		return cli.Wrap(cli.ErrInput, "no report file", err)
	}

	sources, err := s.sources()
	if err != nil {
		return cli.Wrap(cli.ErrInput, "no csv files to analyze", err)
	}
	fmt.Fprintf(stdout, "Found %d csv file(s) to process.\n", len(sources))

	de, err := s.detectionEngine(len(sources))
	if err != nil {
		return err
	}

	opts, err := s.options()
	if err != nil {
		return err
	}

	workers := min(s.workers(), len(sources))
	if opts.Limit, err = s.estimate(sources, opts, workers); err != nil {
		return err
	}

	labels, err := netmap.FromMap(cfg.FlowReport.Networks)
	if err != nil {
		return cli.Wrap(cli.ErrInput, "invalid flow_report.networks", err)
	}

	primary := writer.NewTextWriter(path)
	if path == "" {
		primary = writer.NewDirTextWriter(".")
	}
	if err := primary.Open(time.Now()); err != nil {
		return cli.Wrap(cli.ErrIO, "failed to create report file", err)
	}

	fmt.Fprintln(stdout, "\nProcessing csv files...")
	results, err := s.analyze(ctx, sources, opts, workers)
	if err != nil {
		if rmErr := primary.Discard(); rmErr != nil {
			log.Warnf("Failed to remove unfinished report: %v", rmErr)
		}
		return cli.Wrap(cli.ErrInterrupted, "report not written", err)
	}
	fmt.Fprintln(stdout, "Done processing all csv files!")

	rep := report.Build(results, report.Settings{
		RunID:        uuid.NewString(),
		Options:      opts,
		PairLimit:    s.pairLimit(),
		SummaryLimit: s.summaryLimit(),
		DE:           de,
		Labels:       labels,
	})
	if err := s.deliver(rep, primary); err != nil {
		return err
	}

	for _, r := range results {
		if r.Err == nil {
			return nil
		}
	}
	return cli.NewAppError(cli.ErrInput, "no csv file could be analyzed")
}

// renderSnapshot prints a saved report, or writes it to --report when given.
func renderSnapshot(a args, stdout io.Writer) error {
	rep, err := snapshot.Read(a.Render)
	if err != nil {
		return cli.Wrap(cli.ErrInput, "invalid snapshot", err)
	}
	if a.Report == "" {
		return cli.Wrap(cli.ErrIO, "failed to render report", report.RenderText(stdout, rep))
	}
	w := writer.NewTextWriter(a.Report)
	return cli.Wrap(cli.ErrIO, "failed to write report", w.Write(rep))
}

func validateArgs(a args) error {
	switch {
	case a.Threads != 0 && (a.Threads < 1 || a.Threads > maxThreads):
		return fmt.Errorf("-t must be between 1 and %d, got %d", maxThreads, a.Threads)
	case a.PairLimit < 0:
		return fmt.Errorf("-p must not be negative, got %d", a.PairLimit)
	case a.SummaryLimit < 0:
		return fmt.Errorf("-s must not be negative, got %d", a.SummaryLimit)
	case a.Data != 0 && (a.Data < int(flowip.SelectTCP) || a.Data > int(flowip.SelectAll)):
		return fmt.Errorf("--data must be between 1 and 4, got %d", a.Data)
	case a.Limit != nil && *a.Limit < 0:
		return fmt.Errorf("--limit must not be negative, got %d", *a.Limit)
	}
	return nil
}

func (s *session) workers() int {
	if s.a.Threads != 0 {
		return s.a.Threads
	}
	return s.cfg.FlowReport.MaxWorkers
}

func (s *session) pairLimit() int {
	if s.a.PairLimit != 0 {
		return s.a.PairLimit
	}
	return s.cfg.FlowReport.PairLimit
}

func (s *session) summaryLimit() int {
	if s.a.SummaryLimit != 0 {
		return s.a.SummaryLimit
	}
	return s.cfg.FlowReport.SummaryLimit
}

// reportPath returns "" when the report should get a timestamped name.
func (s *session) reportPath() (string, error) {
	if s.a.Report != "" || s.a.Yes {
		return s.a.Report, nil
	}
	return s.prompt.ReportPath(func(name string) bool {
		_, err := os.Stat(name)
		return err == nil
	})
}

func (s *session) sources() ([]flowip.Source, error) {
	if s.a.File != "" {
		return flowip.SingleSource(s.a.File)
	}
	return flowip.Discover(s.a.Dir)
}

// detectionEngine loads CPU affinity info. A nil Info means none was given.
// An empty DEDir answer is a skip, so Wrap returns nil for it.
func (s *session) detectionEngine(csvCount int) (*deinfo.Info, error) {
	dir := s.a.DEDir
	if dir == "" {
		if s.a.Yes {
			return nil, nil
		}
		var err error
		if dir, err = s.prompt.DEDir(); err != nil || dir == "" {
			return nil, cli.Wrap(cli.ErrInput, "no de directory", err)
		}
	}

	for {
		info, err := deinfo.Load(dir)
		if err == nil {
			if info.Instances != csvCount {
				fmt.Fprintf(s.out, "\nWarning: %s has %d instance directories but %d csv file(s) were found.\n", dir, info.Instances, csvCount)
			}
			return info, nil
		}
		if s.a.Yes {
			return nil, cli.Wrap(cli.ErrInput, "invalid de directory", err)
		}

		fmt.Fprintf(s.out, "\nUnable to use %s: %v\n", dir, err)
		again, askErr := s.prompt.Confirm("Would you like to enter a different one?")
		if askErr != nil {
			return nil, cli.Wrap(cli.ErrInput, "no de directory", askErr)
		}
		if !again {
			fmt.Fprintln(s.out, "\nSkipping de info!")
			return nil, nil
		}
		if dir, err = s.prompt.DEDir(); err != nil || dir == "" {
			return nil, cli.Wrap(cli.ErrInput, "no de directory", err)
		}
	}
}

func (s *session) sortFlag(c flowip.Class) string {
	switch c {
	case flowip.ClassTCP:
		return s.a.TCPSort
	case flowip.ClassUDP:
		return s.a.UDPSort
	default:
		return s.a.OtherSort
	}
}

func (s *session) options() (flowip.Options, error) {
	var opts flowip.Options

	sel := flowip.Selection(s.a.Data)
	if sel == 0 {
		if s.a.Yes {
			sel = flowip.SelectAll
		} else {
			var err error
			if sel, err = s.prompt.Selection(); err != nil {
				return opts, cli.Wrap(cli.ErrInput, "no data selection", err)
			}
		}
	}

	for _, c := range sel.Classes() {
		key, err := s.sortKey(c)
		if err != nil {
			return opts, err
		}
		opts.SetKey(c, key)
	}

	def := s.cfg.FlowReport.DefaultLimit
	switch {
	case s.a.Limit != nil:
		opts.Limit = *s.a.Limit
		if opts.Limit == 0 {
			opts.Limit = def
		}
	case s.a.Yes:
		opts.Limit = def
	default:
		n, err := s.prompt.Limit(def)
		if err != nil {
			return opts, cli.Wrap(cli.ErrInput, "no limit", err)
		}
		opts.Limit = n
	}

	if err := opts.Validate(); err != nil {
		return opts, cli.Wrap(cli.ErrUsage, "invalid report options", err)
	}
	return opts, nil
}

func (s *session) sortKey(c flowip.Class) (flowip.Field, error) {
	if v := s.sortFlag(c); v != "" {
		f, err := flowip.ParseField(c, v)
		if err != nil {
			return "", cli.Wrap(cli.ErrUsage, fmt.Sprintf("invalid --%s-sort", c), err)
		}
		if f.IsIP() {
			return "", cli.NewAppError(cli.ErrUsage, fmt.Sprintf("--%s-sort cannot sort by %s", c, f))
		}
		return f, nil
	}
	if s.a.Yes {
		return defaultKeys[c], nil
	}
	f, err := s.prompt.SortKey(c)
	if err != nil {
		return "", cli.Wrap(cli.ErrInput, "no sort key", err)
	}
	return f, nil
}

// estimate samples every file and returns the limit the run should use.
func (s *session) estimate(sources []flowip.Source, opts flowip.Options, workers int) (int, error) {
	fmt.Fprintln(s.out, "\nChecking csv file(s) and estimating process time...")

	samples := make([]flowip.FileSample, 0, len(sources))
	for _, src := range sources {
		sample, err := flowip.SampleFile(src.Path)
		if err != nil {
			return 0, cli.Wrap(cli.ErrInput, "failed to sample "+src.Path, err)
		}
		samples = append(samples, sample)
	}

	est, err := flowip.EstimateRun(samples, opts.Limit, len(opts.EnabledClasses()), workers)
	if err != nil {
		if errors.Is(err, flowip.ErrTooMuchData) {
			return 0, cli.Wrap(cli.ErrInput, "lower the thread count with -t", err)
		}
		return 0, cli.Wrap(cli.ErrInternal, "failed to estimate run", err)
	}

	if slow := est.SlowPerfmonFiles(); len(slow) > 0 {
		fmt.Fprintln(s.out, "\nThe following files were not captured with 1 second perfmon, the report may miss short bursts:")
		for _, p := range slow {
			fmt.Fprintf(s.out, "  %s\n", p)
		}
	}
	fmt.Fprintf(s.out, "\nEstimated memory use: %.2f GB with %d thread(s)\n", float64(est.MemoryBytes)/(1<<30), workers)
	if est.Runtime > 0 {
		fmt.Fprintf(s.out, "Estimated run time: %s\n", est.Runtime)
	}

	if !est.LimitCapped {
		return opts.Limit, nil
	}
	fmt.Fprintf(s.out, "\nLimit lowered from %d to %d to stay within memory.\n", opts.Limit, est.Limit)
	if s.a.Yes {
		return est.Limit, nil
	}
	ok, err := s.prompt.Confirm("Continue with the lower limit?")
	if err != nil {
		return 0, cli.Wrap(cli.ErrInput, "no answer", err)
	}
	if !ok {
		return 0, cli.NewAppError(cli.ErrInterrupted, "stopped before processing")
	}
	return est.Limit, nil
}

func (s *session) analyze(ctx context.Context, sources []flowip.Source, opts flowip.Options, workers int) ([]manager.Result, error) {
	bar := pb.New(len(sources)).SetWriter(s.errw)
	bar.Start()
	defer bar.Finish()

	m := manager.NewManager(workers, func(ctx context.Context, src flowip.Source) (*flowip.FileResult, error) {
		return flowip.AnalyzeFile(ctx, src.Path, src.Instance, opts)
	})
	m.OnDone(func(manager.Result) { bar.Increment() })
	return m.Run(ctx, sources)
}

// deliver writes the report file and then hands the report to every enabled sink.
func (s *session) deliver(rep *model.Report, primary *writer.TextWriter) error {
	if err := primary.Write(rep); err != nil {
		return cli.Wrap(cli.ErrIO, "failed to write report", err)
	}
	fmt.Fprintf(s.out, "\nReport written to %s\n", primary.Path())

	sinks, err := factory.Create(s.cfg.EnabledWriters())
	if err != nil {
		return cli.Wrap(cli.ErrInput, "invalid flow_report.writers", err)
	}

	var firstErr error
	for _, w := range sinks {
		if err := w.Write(rep); err != nil {
			log.Errorf("Writer %s failed: %v", w.Name(), err)
			if firstErr == nil {
				firstErr = fmt.Errorf("writer %s: %w", w.Name(), err)
			}
		}
		if err := w.Close(); err != nil {
			log.Warnf("Failed to close writer %s: %v", w.Name(), err)
		}
	}
	return cli.Wrap(cli.ErrIO, "failed to deliver report", firstErr)
}
