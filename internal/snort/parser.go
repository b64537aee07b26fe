package snort

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	syslogLine = regexp.MustCompile(`^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+\S+\s+snort\[(\d+)\]:\s?(.*)$`)
	rulesFile  = regexp.MustCompile(`Parsing Rules file "([^"]+)"`)
	uuidInPath = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	totalLine  = regexp.MustCompile(`^\s*Total:\s+(\d+)\s*$`)

	ruleRow    = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+([\d.]+)\s+([\d.]+)\s+([\d.]+)\s+(\d+)\s*$`)
	preprocRow = regexp.MustCompile(`^\s*(\S+)\s+(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+([\d.]+)\s+([\d.]+)\s+([\d.]+)\s*$`)
	portRow    = regexp.MustCompile(`Port\[(\d+)\]\s+([\d.]+)%\s+of\s+Total`)
	typeRow    = regexp.MustCompile(`Type\[(\d+)\]\s+([\d.]+)%\s+of\s+Total`)
	bytesRow   = regexp.MustCompile(`Bytes\[(\d+)\]\s+([\d.]+)%`)
)

type section int

const (
	sectionNone section = iota
	sectionRules
	sectionPreproc
	sectionTCP
	sectionUDP
	sectionICMP
	sectionBytes
)

var sectionHeaders = []struct {
	marker string
	s      section
}{
	{"Rule Profile Statistics", sectionRules},
	{"Preprocessor Profile Statistics", sectionPreproc},
	{"TCP Port Flows", sectionTCP},
	{"UDP Port Flows", sectionUDP},
	{"ICMP Type Flows", sectionICMP},
	{"PacketLen", sectionBytes},
}

type procState struct {
	proc    *Process
	section section
}

// Parse reads syslog lines and groups the Snort messages per PID, in order
// of first appearance. Syslog timestamps have no year; year is used instead.
func Parse(ctx context.Context, r io.Reader, year int) ([]*Process, error) {
	states := map[int]*procState{}
	var order []*Process

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m := syslogLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		pid, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		st, ok := states[pid]
		if !ok {
			start := strings.Join(strings.Fields(m[1]), " ")
			p := &Process{PID: pid, Start: start}
			if t, err := time.ParseInLocation("Jan 2 15:04:05", start, time.Local); err == nil {
				p.StartTime = t.AddDate(year-t.Year(), 0, 0)
			}
			st = &procState{proc: p}
			states[pid] = st
			order = append(order, p)
		}
		st.consume(m[3])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snort log: %w", err)
	}
	return order, nil
}

func (st *procState) consume(msg string) {
	p := st.proc

	for _, h := range sectionHeaders {
		if strings.Contains(msg, h.marker) {
			st.section = h.s
			return
		}
	}

	if m := rulesFile.FindStringSubmatch(msg); m != nil {
		p.ConfigFile = m[1]
		if id := uuidInPath.FindString(m[1]); id != "" {
			if parsed, err := uuid.Parse(id); err == nil {
				p.DEUUID = parsed.String()
			}
		}
		return
	}
	if m := totalLine.FindStringSubmatch(msg); m != nil {
		p.TotalPackets, _ = strconv.ParseUint(m[1], 10, 64)
		p.HasTotalPackets = true
		return
	}

	switch st.section {
	case sectionRules:
		if rp, ok := parseRuleRow(msg); ok {
			p.Rules = append(p.Rules, rp)
		}
	case sectionPreproc:
		if pp, ok := parsePreprocRow(msg); ok {
			p.Preprocs = append(p.Preprocs, pp)
		}
	case sectionTCP:
		appendStat(&p.Flow.TCP, portRow, msg)
	case sectionUDP:
		appendStat(&p.Flow.UDP, portRow, msg)
	case sectionICMP:
		appendStat(&p.Flow.ICMP, typeRow, msg)
	case sectionBytes:
		appendStat(&p.Flow.Bytes, bytesRow, msg)
	}
}

func parseRuleRow(msg string) (RuleProfile, bool) {
	m := ruleRow.FindStringSubmatch(msg)
	if m == nil {
		return RuleProfile{}, false
	}
	u := func(i int) uint64 { v, _ := strconv.ParseUint(m[i], 10, 64); return v }
	f := func(i int) float64 { v, _ := strconv.ParseFloat(m[i], 64); return v }
	return RuleProfile{
		Num:         int(u(1)),
		SID:         uint32(u(2)),
		GID:         uint32(u(3)),
		Rev:         uint32(u(4)),
		Checks:      u(5),
		Matches:     u(6),
		Alerts:      u(7),
		Microsecs:   u(8),
		AvgCheck:    f(9),
		AvgMatch:    f(10),
		AvgNonmatch: f(11),
		Disabled:    u(12),
	}, true
}

func parsePreprocRow(msg string) (PreprocProfile, bool) {
	m := preprocRow.FindStringSubmatch(msg)
	if m == nil {
		return PreprocProfile{}, false
	}
	u := func(i int) uint64 { v, _ := strconv.ParseUint(m[i], 10, 64); return v }
	f := func(i int) float64 { v, _ := strconv.ParseFloat(m[i], 64); return v }
	return PreprocProfile{
		Name:      m[2],
		Layer:     int(u(3)),
		Checks:    u(4),
		Exits:     u(5),
		Microsecs: u(6),
		AvgCheck:  f(7),
		PctCaller: f(8),
		PctTotal:  f(9),
	}, true
}

func appendStat(dst *[]PortStat, re *regexp.Regexp, msg string) {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return
	}
	key, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	pct, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return
	}
	*dst = append(*dst, PortStat{Key: key, Pct: pct, Raw: m[2]})
}
