package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/model"
	"FirepowerKit/internal/snapshot"
)

func writeStats(t *testing.T, dir string, instance int) {
	t.Helper()
	rec := flowip.RawRecord{IPA: "10.0.0.1", IPB: "10.0.0.2"}
	rec.Counters[flowip.ColTCPPacketsAB] = 10
	rec.Counters[flowip.ColTCPBytesAB] = 4096
	rec.Counters[flowip.ColTCPEstablished] = 1

	var b strings.Builder
	for i := 0; i < 3; i++ {
		if err := flowip.WriteInterval(&b, 1700000000+int64(i), []flowip.RawRecord{rec}); err != nil {
			t.Fatalf("WriteInterval failed: %v", err)
		}
	}
	name := filepath.Join(dir, fmt.Sprintf("flow-ip-stats-%d.csv", instance))
	if err := os.WriteFile(name, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

func testArgs(dir string) args {
	return args{
		Dir:    dir,
		Config: filepath.Join(dir, "none.yaml"),
		Report: filepath.Join(dir, "report.txt"),
	}
}

func TestRun_NonInteractive(t *testing.T) {
	dir := t.TempDir()
	writeStats(t, dir, 1)
	writeStats(t, dir, 2)

	a := testArgs(dir)
	a.Yes = true
	var out bytes.Buffer
	if err := run(t.Context(), a, strings.NewReader(""), &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	body, err := os.ReadFile(a.Report)
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	text := string(body)
	for _, want := range []string{
		"=== Report for flow-ip-stats ===",
		"Results for instance-1",
		"Results for instance-2",
		"Results for tcp traffic sorted by tcp_bytes",
		"Results for udp traffic sorted by udp_bytes",
		"CPU Affinity: de dir was not defined!",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Report is missing %q", want)
		}
	}
	if !strings.Contains(out.String(), "Found 2 csv file(s) to process.") {
		t.Errorf("Unexpected console output:\n%s", out.String())
	}
}

func TestRun_Interactive(t *testing.T) {
	dir := t.TempDir()
	writeStats(t, dir, 1)

	a := testArgs(dir)
	a.Report = ""
	report := filepath.Join(dir, "answers.txt")
	// report name, skip de dir, tcp only, sort by packets, default limit
	answers := report + "\ns\n1\n1\n\n"

	if err := run(t.Context(), a, strings.NewReader(answers), &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	body, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "Results for tcp traffic sorted by tcp_packets") {
		t.Errorf("Expected tcp_packets ordering in report:\n%s", text)
	}
	if strings.Contains(text, "udp traffic") {
		t.Errorf("Expected tcp only report")
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	writeStats(t, dir, 1)
	limit := -1

	tests := []struct {
		name   string
		modify func(*args)
		code   int
	}{
		{"too many threads", func(a *args) { a.Threads = 9 }, 2},
		{"bad data selection", func(a *args) { a.Data = 7 }, 2},
		{"negative limit", func(a *args) { a.Limit = &limit }, 2},
		{"ip sort key", func(a *args) { a.TCPSort = "ipA" }, 2},
		{"unknown sort key", func(a *args) { a.UDPSort = "tcp_bytes" }, 2},
		{"missing directory", func(a *args) { a.Dir = filepath.Join(dir, "nope") }, 3},
		{"missing de directory", func(a *args) { a.DEDir = filepath.Join(dir, "de") }, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArgs(dir)
			a.Yes = true
			tt.modify(&a)
			err := run(t.Context(), a, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
			if got := cli.ExitCodeFor(err); got != tt.code {
				t.Errorf("Expected exit code %d, got %d (%v)", tt.code, got, err)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeStats(t, dir, 1)

	a := testArgs(dir)
	a.Yes = true
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := run(ctx, a, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	if cli.ExitCodeFor(err) != 130 {
		t.Errorf("Expected interrupted exit code, got %v", err)
	}
	if _, statErr := os.Stat(a.Report); statErr == nil {
		t.Errorf("Expected no report after cancellation")
	}
}

func TestRun_RenderSnapshot(t *testing.T) {
	dir := t.TempDir()
	rep := &model.Report{RunID: "saved", Generated: time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC), SummaryLimit: 25}
	rep.Options.SetKey(flowip.ClassUDP, flowip.FieldUDPCreated)
	rep.Instances = []model.InstanceReport{{Instance: 1, Path: "flow-ip-stats-1.csv"}}
	saved, err := snapshot.NewWriter(dir).Write(rep)
	if err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	a := testArgs(dir)
	a.Report = ""
	a.Render = saved
	var out bytes.Buffer
	if err := run(t.Context(), a, strings.NewReader(""), &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Results for udp traffic sorted by udp_created") {
		t.Errorf("Expected the saved report on stdout:\n%s", out.String())
	}

	a.Render = filepath.Join(dir, "missing")
	if err := run(t.Context(), a, strings.NewReader(""), &out, &bytes.Buffer{}); cli.ExitCodeFor(err) != 3 {
		t.Errorf("Expected input error for a missing snapshot, got %v", err)
	}
}
