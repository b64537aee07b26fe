package snort

import (
	"context"
	"fmt"

	"FirepowerKit/internal/chstore"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"
)

// Sink stores evaluated rule profiles in ClickHouse.
type Sink struct {
	conn driver.Conn
}

// NewSink creates the rule profile table if needed.
func NewSink(ctx context.Context, conn driver.Conn) (*Sink, error) {
	if err := chstore.EnsureTables(ctx, conn, chstore.TableRuleProfile); err != nil {
		return nil, err
	}
	return &Sink{conn: conn}, nil
}

// Store writes every evaluation of p as one row.
func (s *Sink) Store(ctx context.Context, p *Process, evals []Evaluation) error {
	if len(evals) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+chstore.TableRuleProfile)
	if err != nil {
		return fmt.Errorf("failed to prepare rule profile batch: %w", err)
	}
	for _, ev := range evals {
		r := ev.Rule
		if err := batch.Append(uint32(p.PID), p.StartTime, p.DEUUID, r.GID, r.SID, r.Rev,
			r.Checks, r.Matches, r.Alerts, r.Microsecs, ev.PctTime*100,
			r.AvgCheck, r.AvgMatch, r.AvgNonmatch, r.Disabled); err != nil {
			return fmt.Errorf("failed to append rule profile: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send rule profile batch: %w", err)
	}
	log.Debugf("Stored %d rule profiles for pid %d", len(evals), p.PID)
	return nil
}
