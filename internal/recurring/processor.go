package recurring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/records"
)

// Store is what the processor needs from the record store.
type Store interface {
	records.RecurringLister
	Insert(ctx context.Context, rec core.Record) error
}

// ProcessorConfig holds configuration for the recurring bill processor.
type ProcessorConfig struct {
	// Interval is how often due groups are checked (default: 1h).
	Interval time.Duration
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{Interval: time.Hour}
}

// Processor periodically walks all recurring bill groups and inserts a new
// instance for each group that is due. New instances keep the group id so
// they stay tied to their template.
type Processor struct {
	store  Store
	logger *log.Logger
	config ProcessorConfig
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewProcessor(store Store, logger *log.Logger, config ProcessorConfig) *Processor {
	if config.Interval <= 0 {
		config.Interval = DefaultProcessorConfig().Interval
	}
	return &Processor{
		store:  store,
		logger: logger.WithComponent(log.ComponentRecurring),
		config: config,
		now:    time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("recurring processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "recurring processor started",
		"interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "recurring processor stopped")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "recurring processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning reports whether the processor loop is active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Process immediately on startup.
	p.ProcessDue(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessDue(ctx)
		}
	}
}

// ProcessDue runs one materialization pass and returns how many instances
// were created.
func (p *Processor) ProcessDue(ctx context.Context) int {
	now := p.now()

	groups, err := p.store.ListRecurring(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to list recurring bill groups",
			log.FieldError, err.Error())
		return 0
	}

	created := 0
	for _, latest := range groups {
		checker, err := GetDuenessChecker(latest.Recurrence)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping bill group",
				log.FieldRecordID, latest.ID,
				log.FieldError, err.Error())
			continue
		}
		if !checker.IsDue(latest.Date, now) {
			continue
		}

		instance := core.Record{
			ID:                uuid.NewString(),
			OwnerID:           latest.OwnerID,
			Kind:              core.KindBill,
			Name:              latest.Name,
			Amount:            latest.Amount,
			Date:              now,
			Notes:             latest.Notes,
			CreatedAt:         now,
			Recurrence:        latest.Recurrence,
			RecurrenceGroupID: latest.RecurrenceGroupID,
		}
		if err := p.store.Insert(ctx, instance); err != nil {
			p.logger.ErrorContext(ctx, "failed to materialize bill instance",
				log.FieldOwnerID, latest.OwnerID,
				log.FieldRecordID, latest.ID,
				log.FieldError, err.Error())
			continue
		}

		created++
		p.logger.InfoContext(ctx, "materialized recurring bill instance",
			log.FieldOwnerID, instance.OwnerID,
			log.FieldRecordID, instance.ID,
			"recurrence", string(instance.Recurrence))
	}

	if created > 0 {
		p.logger.InfoContext(ctx, "recurring pass complete",
			log.FieldCount, created,
			"groups_checked", len(groups))
	}
	return created
}
