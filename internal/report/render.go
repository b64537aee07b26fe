package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/model"
)

const (
	instanceRule = "- - - - - - - - - - - - - - - - - - - -"
	closingRule  = "+ + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + + +"
	summaryRule  = "*****************************************************************************************************************"
)

var tableHeaders = map[flowip.Class]string{
	flowip.ClassTCP:   "\tSource\t\t\tDestination\tPackets\t\tBytes\t\tEstablished\tClosed\n",
	flowip.ClassUDP:   "\tSource\t\t\tDestination\tPackets\t\tBytes\tCreated\n",
	flowip.ClassOther: "\tSource\t\t\tDestination\tPackets\t\tBytes\n",
}

// RenderText writes rep in the flow-ip-stats text layout.
func RenderText(w io.Writer, rep *model.Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "================================\n"+
		"=== Report for flow-ip-stats ===\n"+
		"================================\n\n")
	if rep.RunID != "" {
		fmt.Fprintf(bw, "Run %s generated %s\n", rep.RunID, rep.Generated.Format("2006-01-02 15:04:05"))
	}

	for _, inst := range rep.Instances {
		fmt.Fprintf(bw, "\n%s Results for instance-%d %s - -\n\n%s", instanceRule, inst.Instance, instanceRule, inst.CPUAffinity)
		if inst.Err != "" {
			fmt.Fprintf(bw, "\nFailed to analyze %s: %s\n", inst.Path, inst.Err)
		}
		for _, c := range rep.Options.EnabledClasses() {
			pairs := inst.Pairs[c]
			if len(pairs) == 0 {
				continue
			}
			lead := "\n\n"
			if c == flowip.ClassTCP {
				lead = "\n"
			}
			fmt.Fprintf(bw, "%sResults for %s traffic sorted by %s\nLimit set: %s\n\n", lead, c, rep.Options.Key(c), limitLabel(rep.Options.Limit))
			bw.WriteString(tableHeaders[c])
			for n, p := range pairs {
				writeRow(bw, c, n+1, p)
			}
		}
		fmt.Fprintf(bw, "\n%s\n", closingRule)
	}

	fmt.Fprintf(bw, "\n%s\n%47sSUMMARY\n%s\n", summaryRule, "", summaryRule)
	fmt.Fprintf(bw, "Summary contains the top %d hosts, sorted by amount of bytes.\n", rep.SummaryLimit)
	fmt.Fprint(bw, "Summary data only includes data from what is shown above for each instance (Data shown above).\n")
	fmt.Fprintf(bw, "Top %d hosts:\n", rep.SummaryLimit)
	bw.WriteString("\t   Host\t\tTotal bytes(K)\t\tTotal bytes(M)\t\t%tcp\t\t%udp\t\t%other\n")
	for i := range rep.Hosts {
		h := &rep.Hosts[i]
		fmt.Fprintf(bw, "[%2d]: %15s\t%10d\t\t%7d\t\t\t%.1f\t\t%.1f\t\t%.1f",
			i+1, h.Host, h.Total/1024, h.Total/1048576,
			h.Percent(flowip.ClassTCP), h.Percent(flowip.ClassUDP), h.Percent(flowip.ClassOther))
		if h.Label != "" {
			fmt.Fprintf(bw, " [%s]", h.Label)
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// Render returns the text layout as a string.
func Render(rep *model.Report) string {
	var b strings.Builder
	_ = RenderText(&b, rep)
	return b.String()
}

func writeRow(w io.Writer, c flowip.Class, n int, p flowip.PairStats) {
	switch c {
	case flowip.ClassTCP:
		fmt.Fprintf(w, "[%2d]: %15s <----> %15s\t%12d %12d\t%4d\t\t%4d\n", n, p.Source, p.Destination, p.Packets, p.Bytes, p.Established, p.Closed)
	case flowip.ClassUDP:
		fmt.Fprintf(w, "[%2d]: %15s <----> %15s %12d %12d\t%4d\n", n, p.Source, p.Destination, p.Packets, p.Bytes, p.Created)
	default:
		fmt.Fprintf(w, "[%2d]: %15s <----> %15s %12d %12d\n", n, p.Source, p.Destination, p.Packets, p.Bytes)
	}
}

func limitLabel(limit int) string {
	if limit == 0 {
		return "all"
	}
	return fmt.Sprint(limit)
}
