// Package chstore opens ClickHouse connections and owns the table layouts the
// report writers, the Snort sink and the query API share.
package chstore

import (
	"context"
	"fmt"

	"FirepowerKit/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"
)

const (
	TableHostSummary = "flow_host_summary"
	TablePairStats   = "flow_pair_stats"
	TableRuleProfile = "rule_profile_data"
)

const createHostSummary = `
CREATE TABLE IF NOT EXISTS flow_host_summary (
    RunID       String,
    Timestamp   DateTime,
    Rank        UInt32,
    Host        String,
    Label       String,
    TCPBytes    UInt64,
    UDPBytes    UInt64,
    OtherBytes  UInt64,
    TotalBytes  UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunID, Rank);
`

const createPairStats = `
CREATE TABLE IF NOT EXISTS flow_pair_stats (
    RunID       String,
    Timestamp   DateTime,
    Instance    UInt32,
    Class       LowCardinality(String),
    SortKey     LowCardinality(String),
    Rank        UInt32,
    Source      String,
    Destination String,
    Packets     UInt64,
    Bytes       UInt64,
    Established UInt64,
    Closed      UInt64,
    Created     UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunID, Instance, Class, Rank);
`

const createRuleProfile = `
CREATE TABLE IF NOT EXISTS rule_profile_data (
    PID         UInt32,
    StartTime   DateTime,
    DEUUID      String,
    GID         UInt32,
    SID         UInt32,
    Rev         UInt32,
    Checks      UInt64,
    Matches     UInt64,
    Alerts      UInt64,
    Microsecs   UInt64,
    PctTime     Float64,
    AvgCheck    Float64,
    AvgMatch    Float64,
    AvgNonmatch Float64,
    Disabled    UInt64
) ENGINE = ReplacingMergeTree()
PARTITION BY toYYYYMM(StartTime)
ORDER BY (DEUUID, PID, StartTime, GID, SID);
`

var schemas = map[string]string{
	TableHostSummary: createHostSummary,
	TablePairStats:   createPairStats,
	TableRuleProfile: createRuleProfile,
}

// Connect opens and pings a ClickHouse connection.
func Connect(ctx context.Context, cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// EnsureTables creates the named tables if they are missing.
func EnsureTables(ctx context.Context, conn driver.Conn, tables ...string) error {
	for _, table := range tables {
		ddl, ok := schemas[table]
		if !ok {
			return fmt.Errorf("unknown table %q", table)
		}
		if err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	log.Debugf("Ensured ClickHouse tables exist: %v", tables)
	return nil
}
