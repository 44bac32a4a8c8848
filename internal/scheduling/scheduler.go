// Package scheduling computes when a store must next be revisited after a
// visit is logged, and keeps the single-open-entry invariant on the
// revisit_schedules table.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"shelftrack/internal/apperrors"
	"shelftrack/internal/models"
)

// Directory is the read side the scheduler needs from the company/store CRUD
// layer. A missing tier config or tier letter means "use defaults"; a missing
// company or store row is a NotFound.
type Directory interface {
	CompanyExists(ctx context.Context, companyID uint) (bool, error)
	GetStore(ctx context.Context, companyID, storeID uint) (*models.Store, error)
	GetTierConfigs(ctx context.Context, companyID uint) ([]models.TierConfig, error)
}

// ScheduleRepo persists schedule entries. ReplaceOpenEntry must retire every
// uncompleted entry for the store and insert the new one as a single atomic
// unit; a partially applied retire-then-insert may never become visible.
type ScheduleRepo interface {
	ReplaceOpenEntry(ctx context.Context, entry *models.RevisitSchedule) error
}

type Scheduler struct {
	dir  Directory
	repo ScheduleRepo
	now  func() time.Time
}

func NewScheduler(dir Directory, repo ScheduleRepo) *Scheduler {
	return &Scheduler{dir: dir, repo: repo, now: time.Now}
}

// WithClock overrides the scheduler's clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// cadenceFor is the revisit decision table, evaluated first match wins.
func cadenceFor(stockStatus string, tierDays int) (priority string, days int, reason string) {
	switch stockStatus {
	case models.StockOutOfStock:
		return models.PriorityHigh, 2, models.ReasonOOS
	case models.StockLowStock:
		days = tierDays / 2
		if days < 3 {
			days = 3
		}
		return models.PriorityHigh, days, models.ReasonLowStock
	default:
		return models.PriorityNormal, tierDays, models.ReasonScheduled
	}
}

// ScheduleNextRevisit computes and persists the next obligation to revisit a
// store after a visit with the given stock status. Prior open entries for the
// store are retired in the same transaction that inserts the new one.
func (s *Scheduler) ScheduleNextRevisit(ctx context.Context, companyID, storeID, employeeID uint, stockStatus string) (*models.RevisitSchedule, error) {
	exists, err := s.dir.CompanyExists(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("schedule revisit: company lookup: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("schedule revisit: company %d: %w", companyID, apperrors.ErrNotFound)
	}

	store, err := s.dir.GetStore(ctx, companyID, storeID)
	if err != nil {
		return nil, fmt.Errorf("schedule revisit: store lookup: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("schedule revisit: store %d: %w", storeID, apperrors.ErrNotFound)
	}

	configs, err := s.dir.GetTierConfigs(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("schedule revisit: tier config lookup: %w", err)
	}

	tierDays := ResolveTierDays(configs, store.Tier)
	priority, days, reason := cadenceFor(stockStatus, tierDays)

	today := s.today()
	entry := &models.RevisitSchedule{
		CompanyID:     companyID,
		StoreID:       storeID,
		NextVisitDate: today.AddDate(0, 0, days),
		Priority:      priority,
		Reason:        reason,
		AssignedTo:    employeeID,
		Completed:     false,
	}

	if err := s.repo.ReplaceOpenEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("schedule revisit: persist: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"store_id":        storeID,
		"company_id":      companyID,
		"stock_status":    stockStatus,
		"priority":        priority,
		"reason":          reason,
		"next_visit_date": entry.NextVisitDate.Format("2006-01-02"),
	}).Info("Revisit scheduled.")

	return entry, nil
}

func (s *Scheduler) today() time.Time {
	t := s.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
