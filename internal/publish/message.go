package publish

import (
	"fmt"
	"time"

	"FirepowerKit/internal/flowip"
	"FirepowerKit/internal/model"

	"google.golang.org/protobuf/types/known/structpb"
)

// SummaryMessage converts the report summary into a protobuf Struct.
func SummaryMessage(rep *model.Report) (*structpb.Struct, error) {
	hosts := make([]interface{}, 0, len(rep.Hosts))
	for i := range rep.Hosts {
		h := &rep.Hosts[i]
		hosts = append(hosts, map[string]interface{}{
			"rank":        i + 1,
			"host":        h.Host,
			"label":       h.Label,
			"tcp_bytes":   h.TCPBytes,
			"udp_bytes":   h.UDPBytes,
			"other_bytes": h.OtherBytes,
			"total_bytes": h.Total,
		})
	}

	instances := make([]interface{}, 0, len(rep.Instances))
	for _, inst := range rep.Instances {
		entry := map[string]interface{}{
			"instance":     inst.Instance,
			"path":         inst.Path,
			"cpu_affinity": inst.CPUAffinity,
			"intervals":    inst.Intervals,
		}
		if inst.Err != "" {
			entry["error"] = inst.Err
		}
		instances = append(instances, entry)
	}

	keys := map[string]interface{}{}
	for _, c := range rep.Options.EnabledClasses() {
		keys[c.String()] = string(rep.Options.Key(c))
	}

	msg, err := structpb.NewStruct(map[string]interface{}{
		"run_id":        rep.RunID,
		"generated":     rep.Generated.UTC().Format(time.RFC3339),
		"limit":         rep.Options.Limit,
		"pair_limit":    rep.PairLimit,
		"summary_limit": rep.SummaryLimit,
		"host_count":    rep.HostCount,
		"sort_keys":     keys,
		"hosts":         hosts,
		"instances":     instances,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build summary message: %w", err)
	}
	return msg, nil
}

// HostsFromMessage reads the host rows back out of a summary message.
func HostsFromMessage(msg *structpb.Struct) []flowip.HostTotal {
	var out []flowip.HostTotal
	for _, v := range msg.GetFields()["hosts"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		out = append(out, flowip.HostTotal{
			Host:       f["host"].GetStringValue(),
			Label:      f["label"].GetStringValue(),
			TCPBytes:   uint64(f["tcp_bytes"].GetNumberValue()),
			UDPBytes:   uint64(f["udp_bytes"].GetNumberValue()),
			OtherBytes: uint64(f["other_bytes"].GetNumberValue()),
			Total:      uint64(f["total_bytes"].GetNumberValue()),
		})
	}
	return out
}
