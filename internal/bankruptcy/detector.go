package bankruptcy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hakoware/api/internal/debt"
	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/internal/notification"
)

// NoticePeriod is the minimum gap between recurring notices to a party that
// is already bankrupt. It throttles nagging; it is independent of the
// one-time wasBankrupt gate that prevents duplicate Records.
const NoticePeriod = 10 * 24 * time.Hour

// ErrRunInProgress rejects a second accrual invocation while one is in
// flight. Two concurrent runs racing on the same wasBankrupt flag could
// double-declare or silently skip an episode.
var ErrRunInProgress = errors.New("daily accrual already running")

// SideResult is the accrual outcome for one perspective.
type SideResult struct {
	Side          friendship.Side
	Stats         debt.Stats
	NewlyBankrupt bool
}

// AccrualUpdate is everything the detector wants written for one
// friendship: refreshed caches for both sides, new sticky flags, and new
// bankruptcy records. The store must apply it as one atomic batch so a
// reader never sees one side refreshed and the other stale.
type AccrualUpdate struct {
	FriendshipID int64
	Version      int64
	Now          time.Time
	Sides        [2]SideResult
	Records      []*Record
}

// Store is the persistence port the detector needs.
type Store interface {
	ListFriendships(ctx context.Context) ([]*friendship.Friendship, error)
	GetFriendship(ctx context.Context, id int64) (*friendship.Friendship, error)
	ApplyAccrual(ctx context.Context, u *AccrualUpdate) error
	StampBankruptcyEmail(ctx context.Context, friendshipID int64, side friendship.Side, at time.Time) error
}

// Failure reports one friendship the run could not update.
type Failure struct {
	FriendshipID int64  `json:"friendship_id"`
	Error        string `json:"error"`
}

// Report summarizes one accrual run.
type Report struct {
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	Processed        int       `json:"processed"`
	NewBankruptcies  int       `json:"new_bankruptcies"`
	RecurringNotices int       `json:"recurring_notices"`
	Failures         []Failure `json:"failures,omitempty"`
}

// Detector runs the daily debt accrual over all friendships.
type Detector struct {
	store    Store
	notifier notification.Notifier

	mu sync.Mutex
}

// NewDetector creates a new bankruptcy detector.
func NewDetector(store Store, notifier notification.Notifier) *Detector {
	return &Detector{store: store, notifier: notifier}
}

// RunDailyAccrual evaluates every friendship's two perspectives at now,
// declares new bankruptcies, refreshes cached stats, and sends recurring
// notices to parties that stayed bankrupt. One friendship failing does not
// abort the run; failures are collected in the report. The run is not
// re-entrant.
func (d *Detector) RunDailyAccrual(ctx context.Context, now time.Time) (*Report, error) {
	if !d.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer d.mu.Unlock()

	report := &Report{RunID: uuid.NewString(), StartedAt: now}
	slog.Info("daily accrual starting", "run_id", report.RunID)

	friendships, err := d.store.ListFriendships(ctx)
	if err != nil {
		return nil, err
	}

	for _, f := range friendships {
		if err := d.processFriendship(ctx, f, now, report); err != nil {
			slog.Error("accrual failed for friendship", "run_id", report.RunID, "friendship_id", f.ID, "error", err)
			report.Failures = append(report.Failures, Failure{FriendshipID: f.ID, Error: err.Error()})
		}
	}

	slog.Info("daily accrual complete",
		"run_id", report.RunID,
		"processed", report.Processed,
		"new_bankruptcies", report.NewBankruptcies,
		"recurring_notices", report.RecurringNotices,
		"failures", len(report.Failures),
	)
	return report, nil
}

func (d *Detector) processFriendship(ctx context.Context, f *friendship.Friendship, now time.Time, report *Report) error {
	update := buildUpdate(f, now)

	err := d.store.ApplyAccrual(ctx, update)
	if errors.Is(err, friendship.ErrConflict) {
		// Someone checked in or settled mid-run; recompute from the fresh
		// row and try once more.
		fresh, ferr := d.store.GetFriendship(ctx, f.ID)
		if ferr != nil {
			return ferr
		}
		if fresh == nil {
			return friendship.ErrFriendshipNotFound
		}
		f = fresh
		update = buildUpdate(f, now)
		err = d.store.ApplyAccrual(ctx, update)
	}
	if err != nil {
		return err
	}

	report.Processed += 2
	for _, side := range update.Sides {
		if side.NewlyBankrupt {
			report.NewBankruptcies++
			d.notifier.Notify(ctx, notification.Event{
				Kind:        notification.KindBankruptcyDeclared,
				RecipientID: f.UserID(side.Side.Other()),
				FromUserID:  f.UserID(side.Side),
				Name:        f.Name(side.Side),
				DebtBefore:  side.Stats.TotalDebt,
				EntityType:  "FRIENDSHIP",
				EntityID:    f.ID,
			})
		}
	}

	d.sendRecurringNotices(ctx, f, update, now, report)
	return nil
}

// buildUpdate evaluates both perspectives of a friendship.
func buildUpdate(f *friendship.Friendship, now time.Time) *AccrualUpdate {
	update := &AccrualUpdate{FriendshipID: f.ID, Version: f.Version, Now: now}

	for i, side := range []friendship.Side{friendship.SideUser1, friendship.SideUser2} {
		p := f.Perspective(side)
		stats := p.Calculate(now)
		newly := stats.IsBankrupt && !p.WasBankrupt

		update.Sides[i] = SideResult{Side: side, Stats: stats, NewlyBankrupt: newly}
		if newly {
			update.Records = append(update.Records, &Record{
				UserID:           f.UserID(side),
				FriendID:         f.UserID(side.Other()),
				FriendshipID:     f.ID,
				DebtAtBankruptcy: stats.TotalDebt,
				DeclaredAt:       now,
			})
		}
	}

	return update
}

// sendRecurringNotices nags parties that were already bankrupt and still
// are, at most once per NoticePeriod. The declaration itself stamps the
// notice time, so a fresh bankruptcy is not double-notified.
func (d *Detector) sendRecurringNotices(ctx context.Context, f *friendship.Friendship, update *AccrualUpdate, now time.Time, report *Report) {
	for _, side := range update.Sides {
		p := f.Perspective(side.Side)
		if side.NewlyBankrupt || !p.WasBankrupt || !side.Stats.IsBankrupt {
			continue
		}
		if p.LastBankruptcyEmail != nil && now.Sub(*p.LastBankruptcyEmail) < NoticePeriod {
			continue
		}

		d.notifier.Notify(ctx, notification.Event{
			Kind:        notification.KindBankruptcyNotice,
			RecipientID: f.UserID(side.Side.Other()),
			FromUserID:  f.UserID(side.Side),
			Name:        f.Name(side.Side),
			DebtBefore:  side.Stats.TotalDebt,
			EntityType:  "FRIENDSHIP",
			EntityID:    f.ID,
		})
		report.RecurringNotices++

		if err := d.store.StampBankruptcyEmail(ctx, f.ID, side.Side, now); err != nil {
			slog.Warn("failed to stamp bankruptcy notice time", "friendship_id", f.ID, "error", err)
		}
	}
}
