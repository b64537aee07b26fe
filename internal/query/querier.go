package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FirepowerKit/internal/chstore"
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/flowip"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Run describes one stored flow report.
type Run struct {
	RunID     string    `json:"run_id"`
	Generated time.Time `json:"generated"`
	Hosts     uint64    `json:"hosts"`
}

// HostRow is one summary host of a run.
type HostRow struct {
	Rank       uint32 `json:"rank"`
	Host       string `json:"host"`
	Label      string `json:"label,omitempty"`
	TCPBytes   uint64 `json:"tcp_bytes"`
	UDPBytes   uint64 `json:"udp_bytes"`
	OtherBytes uint64 `json:"other_bytes"`
	TotalBytes uint64 `json:"total_bytes"`
}

// PairRow is one displayed pair of a run.
type PairRow struct {
	Instance    uint32 `json:"instance"`
	Class       string `json:"class"`
	SortKey     string `json:"sort_key"`
	Rank        uint32 `json:"rank"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Packets     uint64 `json:"packets"`
	Bytes       uint64 `json:"bytes"`
	Established uint64 `json:"established"`
	Closed      uint64 `json:"closed"`
	Created     uint64 `json:"created"`
}

// RuleRow is a stored rule profile, most expensive first.
type RuleRow struct {
	DEUUID      string    `json:"de_uuid"`
	PID         uint32    `json:"pid"`
	StartTime   time.Time `json:"start_time"`
	GID         uint32    `json:"gid"`
	SID         uint32    `json:"sid"`
	PctTime     float64   `json:"pct_time"`
	AvgCheck    float64   `json:"avg_check"`
	AvgMatch    float64   `json:"avg_match"`
	AvgNonmatch float64   `json:"avg_nonmatch"`
}

// Querier defines the interface for reading stored reports.
type Querier interface {
	Runs(ctx context.Context, limit int) ([]Run, error)
	TopHosts(ctx context.Context, runID string, limit int) ([]HostRow, error)
	Pairs(ctx context.Context, runID string, class string, limit int) ([]PairRow, error)
	ExpensiveRules(ctx context.Context, limit int) ([]RuleRow, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(ctx context.Context, cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := chstore.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// Runs lists stored runs, newest first.
func (q *clickhouseQuerier) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT RunID, max(Timestamp) AS Generated, count() AS Hosts
		FROM ` + chstore.TableHostSummary + `
		GROUP BY RunID
		ORDER BY Generated DESC` + limitClause(limit)

	rows, err := q.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Generated, &r.Hosts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TopHosts returns the summary hosts of a run in rank order.
func (q *clickhouseQuerier) TopHosts(ctx context.Context, runID string, limit int) ([]HostRow, error) {
	query := `
		SELECT Rank, Host, Label, TCPBytes, UDPBytes, OtherBytes, TotalBytes
		FROM ` + chstore.TableHostSummary + `
		WHERE RunID = ?
		ORDER BY Rank` + limitClause(limit)

	rows, err := q.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var hosts []HostRow
	for rows.Next() {
		var h HostRow
		if err := rows.Scan(&h.Rank, &h.Host, &h.Label, &h.TCPBytes, &h.UDPBytes, &h.OtherBytes, &h.TotalBytes); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// Pairs returns the displayed pairs of a run, optionally for one class.
func (q *clickhouseQuerier) Pairs(ctx context.Context, runID string, class string, limit int) ([]PairRow, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT Instance, Class, SortKey, Rank, Source, Destination, Packets, Bytes, Established, Closed, Created
		FROM ` + chstore.TablePairStats)

	whereClauses := []string{"RunID = ?"}
	args := []interface{}{runID}

	if class != "" {
		c, err := flowip.ParseClass(class)
		if err != nil {
			return nil, err
		}
		whereClauses = append(whereClauses, "Class = ?")
		args = append(args, c.String())
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString(" ORDER BY Instance, Class, Rank")
	queryBuilder.WriteString(limitClause(limit))

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var pairs []PairRow
	for rows.Next() {
		var p PairRow
		if err := rows.Scan(&p.Instance, &p.Class, &p.SortKey, &p.Rank, &p.Source, &p.Destination,
			&p.Packets, &p.Bytes, &p.Established, &p.Closed, &p.Created); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ExpensiveRules returns the rule profiles with the highest CPU share.
func (q *clickhouseQuerier) ExpensiveRules(ctx context.Context, limit int) ([]RuleRow, error) {
	query := `
		SELECT DEUUID, PID, StartTime, GID, SID, PctTime, AvgCheck, AvgMatch, AvgNonmatch
		FROM ` + chstore.TableRuleProfile + ` FINAL
		ORDER BY PctTime DESC, AvgNonmatch DESC` + limitClause(limit)

	rows, err := q.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var rules []RuleRow
	for rows.Next() {
		var r RuleRow
		if err := rows.Scan(&r.DEUUID, &r.PID, &r.StartTime, &r.GID, &r.SID, &r.PctTime, &r.AvgCheck, &r.AvgMatch, &r.AvgNonmatch); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
