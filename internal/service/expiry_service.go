package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/config"
)

type expiryDonationRepository interface {
	ListDue(ctx context.Context, q sqlx.ExtContext, asOf time.Time) ([]models.Donation, error)
	SetStatus(ctx context.Context, q sqlx.ExtContext, id string, status models.DonationStatus) error
}

// ExpiryService periodically marks valid donations past their expiry date as
// expired and removes their units from inventory.
type ExpiryService struct {
	tx        txRunner
	donations expiryDonationRepository
	inventory inventoryLedger
	recorder  activityRecorder
	metrics   *MetricsService
	logger    *zap.Logger
	interval  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewExpiryService constructs the expiry sweeper.
func NewExpiryService(tx txRunner, donations expiryDonationRepository, inventory inventoryLedger, recorder activityRecorder, metrics *MetricsService, logger *zap.Logger, cfg config.SweepConfig) *ExpiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ExpiryService{
		tx:        tx,
		donations: donations,
		inventory: inventory,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background sweep loop. One sweep runs immediately.
func (s *ExpiryService) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to finish.
func (s *ExpiryService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *ExpiryService) sweep(ctx context.Context) {
	expired, err := s.RunOnce(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expiry sweep finished", zap.Int("expired", expired))
	}
}

// RunOnce expires every valid donation whose expiry date is before asOf.
// Donations whose units can no longer be covered by inventory are skipped
// and retried on the next sweep. Returns the number of donations expired.
func (s *ExpiryService) RunOnce(ctx context.Context, asOf time.Time) (int, error) {
	expired := 0
	var swept []models.Donation

	err := s.tx.RunTx(ctx, func(q sqlx.ExtContext) error {
		due, err := s.donations.ListDue(ctx, q, asOf)
		if err != nil {
			return fmt.Errorf("list due donations: %w", err)
		}
		for _, donation := range due {
			ok, err := s.inventory.Deduct(ctx, q, donation.BankID, donation.BloodGroup, donation.Units)
			if err != nil {
				return fmt.Errorf("deduct expired donation %s: %w", donation.ID, err)
			}
			if !ok {
				s.logger.Warn("skipping expiry, inventory cannot cover donation units",
					zap.String("donation_id", donation.ID),
					zap.String("bank_id", donation.BankID),
					zap.String("blood_group", string(donation.BloodGroup)),
					zap.Int("units", donation.Units))
				continue
			}
			if err := s.donations.SetStatus(ctx, q, donation.ID, models.DonationExpired); err != nil {
				return fmt.Errorf("expire donation %s: %w", donation.ID, err)
			}
			swept = append(swept, donation)
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, donation := range swept {
		if s.metrics != nil {
			s.metrics.ObserveInventoryChange(donation.BankID, string(donation.BloodGroup), donation.Units, "out")
		}
		if s.recorder != nil {
			s.recorder.Record(nil, models.ActivityDonationExpired,
				fmt.Sprintf("Donation expired, %d units %s removed from inventory", donation.Units, donation.BloodGroup),
				map[string]interface{}{
					"donation_id": donation.ID,
					"bank_id":     donation.BankID,
					"units":       donation.Units,
				})
		}
	}

	return expired, nil
}
