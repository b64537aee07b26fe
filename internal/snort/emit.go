package snort

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Mode selects the output layout.
type Mode string

const (
	ModeText   Mode = "text"
	ModeCSV    Mode = "csv"
	ModeCSVAll Mode = "csv_all"
	ModeSQL    Mode = "sql"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeText, ModeCSV, ModeCSVAll, ModeSQL:
		return m, nil
	}
	return "", fmt.Errorf("unknown output mode %q (text, csv, csv_all, sql)", s)
}

// Options selects what the analyzer prints.
type Options struct {
	Bytes       bool
	UDP         bool
	TCP         bool
	ICMP        bool
	Performance bool
	Threshold   int
	MinPercent  float64
	Mode        Mode
	Limits      Limits
}

// Normalize turns on performance output when nothing else is selected.
func (o *Options) Normalize() {
	if !o.Bytes && !o.UDP && !o.TCP && !o.ICMP && !o.Performance {
		o.Performance = true
	}
	if o.Mode == "" {
		o.Mode = ModeText
	}
}

// Emitter writes the analysis of each process.
type Emitter struct {
	out  *bufio.Writer
	errw io.Writer
	opts Options

	headerPrinted bool
}

// NewEmitter writes results to out and per-process problems to errw.
func NewEmitter(out, errw io.Writer, opts Options) *Emitter {
	opts.Normalize()
	return &Emitter{out: bufio.NewWriter(out), errw: errw, opts: opts}
}

// Flush flushes buffered output.
func (e *Emitter) Flush() error { return e.out.Flush() }

// Process prints the flow and performance sections of p. It returns the
// rule evaluations, or nil when performance output is off or data is missing.
func (e *Emitter) Process(p *Process) []Evaluation {
	e.headerPrinted = false

	if e.opts.Mode == ModeText && !p.Flow.empty() {
		e.flowSection(p, e.opts.TCP, "TCP data", "Port %d", p.Flow.TCP)
		e.flowSection(p, e.opts.UDP, "UDP data", "Port %d", p.Flow.UDP)
		e.flowSection(p, e.opts.Bytes, "Bytes data", "Size [%d]", p.Flow.Bytes)
		e.flowSection(p, e.opts.ICMP, "ICMP data", "Type %d", p.Flow.ICMP)
	}

	if !e.opts.Performance || (len(p.Rules) == 0 && len(p.Preprocs) == 0) {
		return nil
	}
	e.header(p)

	evals, err := Evaluate(p, e.opts.Limits)
	if err != nil {
		if errors.Is(err, ErrNoPreprocData) || errors.Is(err, ErrNoRuleData) {
			e.out.Flush()
			fmt.Fprintln(e.errw, err)
		}
		return nil
	}

	key := fmt.Sprintf("%d, %s, %s", p.PID, p.Start, p.ConfigFile)
	for i := range evals {
		e.rule(p, key, &evals[i])
	}
	return evals
}

func (e *Emitter) header(p *Process) {
	if e.opts.Mode == ModeText && !e.headerPrinted {
		fmt.Fprintf(e.out, "Output from %d\n", p.PID)
		e.headerPrinted = true
	}
}

func (e *Emitter) flowSection(p *Process, enabled bool, title, label string, stats []PortStat) {
	if !enabled || len(stats) == 0 {
		return
	}
	e.header(p)
	fmt.Fprintf(e.out, "\t%s\n", title)
	for _, s := range FilterTop(stats, e.opts.Threshold, e.opts.MinPercent) {
		fmt.Fprintf(e.out, "\t\t"+label+"  \t:\t%s%%\n", s.Key, s.Raw)
	}
}

func (e *Emitter) rule(p *Process, key string, ev *Evaluation) {
	r := &ev.Rule
	pct := fmt.Sprintf("%0.2f", ev.PctTime*100)
	pctPackets := fmt.Sprintf("%0.2f", ev.PctPackets*100)

	switch e.opts.Mode {
	case ModeCSVAll:
		fmt.Fprintf(e.out, "%s, %d, %d, %s\n", key, r.GID, r.SID, detail(ev, pct, pctPackets))
	case ModeSQL:
		fmt.Fprintf(e.out, "REPLACE INTO rule_profile_data VALUES(%d, %d, '%s', %d, %d, %d, %d, %d, %d, %d, %s, %s, %s, %s, %d);\n",
			p.PID, p.StartTime.Unix(), p.DEUUID, r.GID, r.SID, r.Rev, r.Checks, r.Matches, r.Alerts, r.Microsecs,
			pct, num(r.AvgCheck), num(r.AvgMatch), num(r.AvgNonmatch), r.Disabled)
	case ModeCSV:
		if ev.Expensive() {
			fmt.Fprintf(e.out, "%s, %s, %d, %d, %s\n", key, ev.Expense, r.GID, r.SID, detail(ev, pct, pctPackets))
		}
	default:
		if ev.Expensive() {
			fmt.Fprintf(e.out, "%d:%d: %s%% of Snort's time, %s%% of packets analyzed, %s average time per packet, %s microsecs/match\n",
				r.GID, r.SID, pct, pctPackets, num(r.AvgCheck), num(r.AvgMatch))
		}
	}
}

func detail(ev *Evaluation, pct, pctPackets string) string {
	r := &ev.Rule
	return fmt.Sprintf("%s%%, %s, %s, %s%%, %s, %d, %d, %d, %d, %d",
		pct, num(r.AvgNonmatch), num(r.AvgMatch), pctPackets, num(r.AvgCheck),
		r.Checks, r.Microsecs, r.Matches, r.Alerts, r.Disabled)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
