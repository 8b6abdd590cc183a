package history

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner deletes expired records on a schedule.
type Pruner struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// Nightly, off the busiest hours.
const pruneSchedule = "30 3 * * *"

// NewPruner schedules a daily prune of records older than retentionDays.
// A retention of zero disables pruning.
func NewPruner(store *Store, retentionDays int, logger zerolog.Logger) (*Pruner, error) {
	c := cron.New()

	if retentionDays > 0 {
		_, err := c.AddFunc(pruneSchedule, func() {
			removed, err := store.PruneOlderThan(retentionDays)
			if err != nil {
				logger.Warn().Err(err).Msg("History prune failed")
				return
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Int("retention_days", retentionDays).Msg("Pruned execution history")
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return &Pruner{cron: c, logger: logger}, nil
}

// Start begins running scheduled prunes in the background.
func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}
