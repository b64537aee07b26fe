package writer

import (
	"context"
	"fmt"

	"FirepowerKit/internal/chstore"
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/factory"
	"FirepowerKit/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

// ClickHouseWriter stores the host summary and the displayed pairs.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects and makes sure both report tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	ctx := context.Background()
	conn, err := chstore.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := chstore.EnsureTables(ctx, conn, chstore.TableHostSummary, chstore.TablePairStats); err != nil {
		conn.Close()
		return nil, err
	}
	return &ClickHouseWriter{conn: conn}, nil
}

func (w *ClickHouseWriter) Name() string { return "clickhouse" }

func (w *ClickHouseWriter) Write(rep *model.Report) error {
	ctx := context.Background()

	hostBatch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+chstore.TableHostSummary)
	if err != nil {
		return fmt.Errorf("failed to prepare host batch: %w", err)
	}
	for i, h := range rep.Hosts {
		if err := hostBatch.Append(rep.RunID, rep.Generated, uint32(i+1), h.Host, h.Label,
			h.TCPBytes, h.UDPBytes, h.OtherBytes, h.Total); err != nil {
			return fmt.Errorf("failed to append host row: %w", err)
		}
	}
	if err := hostBatch.Send(); err != nil {
		return fmt.Errorf("failed to send host batch: %w", err)
	}

	pairBatch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+chstore.TablePairStats)
	if err != nil {
		return fmt.Errorf("failed to prepare pair batch: %w", err)
	}
	rows := 0
	for _, inst := range rep.Instances {
		for _, c := range rep.Options.EnabledClasses() {
			key := string(rep.Options.Key(c))
			for i, p := range inst.Pairs[c] {
				if err := pairBatch.Append(rep.RunID, rep.Generated, uint32(inst.Instance), c.String(), key,
					uint32(i+1), p.Source, p.Destination, p.Packets, p.Bytes, p.Established, p.Closed, p.Created); err != nil {
					return fmt.Errorf("failed to append pair row: %w", err)
				}
				rows++
			}
		}
	}
	if err := pairBatch.Send(); err != nil {
		return fmt.Errorf("failed to send pair batch: %w", err)
	}

	log.Infof("Stored run %s in ClickHouse (%d hosts, %d pairs)", rep.RunID, len(rep.Hosts), rows)
	return nil
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
