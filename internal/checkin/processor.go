package checkin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hakoware/api/internal/friendship"
)

// Processor runs a check-in through the primary strategy and falls back to
// the secondary one only on infrastructure failures.
//
// Fallback policy: domain outcomes (cooldown, permissions, missing
// friendship, write conflicts) are final; retrying them on another path
// could let a rejected check-in through. Anything else means the primary
// backend misbehaved and the fallback gets one shot.
type Processor struct {
	primary  Strategy
	fallback Strategy
	now      func() time.Time
}

// NewProcessor creates a check-in processor. fallback may be nil.
func NewProcessor(primary, fallback Strategy) *Processor {
	return &Processor{primary: primary, fallback: fallback, now: time.Now}
}

// NewProcessorWithClock creates a processor with an injected clock for tests.
func NewProcessorWithClock(primary, fallback Strategy, now func() time.Time) *Processor {
	return &Processor{primary: primary, fallback: fallback, now: now}
}

// Checkin performs a check-in on behalf of userID.
func (p *Processor) Checkin(ctx context.Context, friendshipID, userID int64, proof *string) (*Result, error) {
	now := p.now()

	result, err := p.primary.Do(ctx, friendshipID, userID, proof, now)
	if err == nil {
		return result, nil
	}
	if isDomainError(err) || p.fallback == nil {
		return nil, err
	}

	slog.Warn("primary check-in strategy failed, falling back",
		"strategy", p.primary.Name(),
		"fallback", p.fallback.Name(),
		"friendship_id", friendshipID,
		"error", err,
	)
	return p.fallback.Do(ctx, friendshipID, userID, proof, now)
}

// isDomainError reports whether err is a business outcome rather than an
// infrastructure failure.
func isDomainError(err error) bool {
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, friendship.ErrFriendshipNotFound) ||
		errors.Is(err, friendship.ErrNotParticipant) ||
		errors.Is(err, friendship.ErrConflict)
}
