package repository

import (
	"context"
	otperrors "medibook/internal/otp/errors"
	"medibook/pkg/db"
	"medibook/pkg/db/memory"
	"medibook/pkg/model"
	"sync"
	"time"
)

// memoryChallengeRepository keeps challenges in process. Every write records
// its inverse with memory.OnRollback so a failed transaction leaves no trace.
type memoryChallengeRepository struct {
	mu         sync.RWMutex
	challenges map[string]*model.OTPChallenge
	txManager  db.TransactionManager
}

func NewMemoryChallengeRepository(txManager db.TransactionManager) ChallengeRepository {
	return &memoryChallengeRepository{
		challenges: make(map[string]*model.OTPChallenge),
		txManager:  txManager,
	}
}

func (r *memoryChallengeRepository) Create(ctx context.Context, challenge *model.OTPChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.challenges {
		if c.Status == model.ChallengePending && c.SubjectRef == challenge.SubjectRef && c.Purpose == challenge.Purpose {
			return otperrors.ErrPendingExists
		}
	}
	r.challenges[challenge.ID] = challenge.Clone()

	id := challenge.ID
	memory.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.challenges, id)
	})
	return nil
}

func (r *memoryChallengeRepository) FindByID(_ context.Context, id string) (*model.OTPChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.challenges[id]
	if !ok {
		return nil, otperrors.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *memoryChallengeRepository) FindPending(_ context.Context, subjectRef string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.challenges {
		if c.Status == model.ChallengePending && c.SubjectRef == subjectRef && c.Purpose == purpose {
			return c.Clone(), nil
		}
	}
	return nil, otperrors.ErrNotFound
}

func (r *memoryChallengeRepository) FindLatest(_ context.Context, subjectRef string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.OTPChallenge
	for _, c := range r.challenges {
		if c.SubjectRef != subjectRef || c.Purpose != purpose {
			continue
		}
		// a resend at the same instant leaves the pending challenge as latest
		if latest == nil || c.IssuedAt.After(latest.IssuedAt) ||
			(c.IssuedAt.Equal(latest.IssuedAt) && c.Status == model.ChallengePending) {
			latest = c
		}
	}
	if latest == nil {
		return nil, otperrors.ErrNotFound
	}
	return latest.Clone(), nil
}

func (r *memoryChallengeRepository) SupersedePending(ctx context.Context, subjectRef string, purpose model.OTPPurpose, at time.Time) (int64, error) {
	return r.updateWhere(ctx, func(c *model.OTPChallenge) bool {
		return c.Status == model.ChallengePending && c.SubjectRef == subjectRef && c.Purpose == purpose
	}, func(c *model.OTPChallenge) {
		supersede(c, at)
	}), nil
}

func (r *memoryChallengeRepository) SupersedeBooking(ctx context.Context, bookingID string, at time.Time) (int64, error) {
	return r.updateWhere(ctx, func(c *model.OTPChallenge) bool {
		return c.Status == model.ChallengePending && c.BookingID == bookingID
	}, func(c *model.OTPChallenge) {
		supersede(c, at)
	}), nil
}

func supersede(c *model.OTPChallenge, at time.Time) {
	c.Status = model.ChallengeSuperseded
	c.SupersededAt = &at
	c.UpdatedAt = at
}

func (r *memoryChallengeRepository) MarkValidated(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, func(c *model.OTPChallenge) {
		c.Status = model.ChallengeValidated
		c.ValidatedAt = &at
		c.UpdatedAt = at
	})
}

func (r *memoryChallengeRepository) MarkExpired(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, func(c *model.OTPChallenge) {
		c.Status = model.ChallengeExpired
		c.UpdatedAt = at
	})
}

func (r *memoryChallengeRepository) transition(ctx context.Context, id string, apply func(*model.OTPChallenge)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[id]
	if !ok {
		return otperrors.ErrNotFound
	}
	if c.Status != model.ChallengePending {
		return otperrors.ErrNotPending
	}
	r.recordLocked(ctx, c)
	apply(c)
	return nil
}

func (r *memoryChallengeRepository) IncrementAttempts(ctx context.Context, id string, at time.Time) error {
	return r.mutate(ctx, id, func(c *model.OTPChallenge) {
		c.Attempts++
		c.UpdatedAt = at
	})
}

func (r *memoryChallengeRepository) SetDelivery(ctx context.Context, id string, status model.DeliveryStatus, deliveryErr string, at time.Time) error {
	return r.mutate(ctx, id, func(c *model.OTPChallenge) {
		c.DeliveryStatus = status
		c.DeliveryError = deliveryErr
		c.UpdatedAt = at
	})
}

func (r *memoryChallengeRepository) ExpireStale(ctx context.Context, before time.Time, at time.Time) (int64, error) {
	return r.updateWhere(ctx, func(c *model.OTPChallenge) bool {
		return c.Status == model.ChallengePending && c.ExpiresAt.Before(before)
	}, func(c *model.OTPChallenge) {
		c.Status = model.ChallengeExpired
		c.UpdatedAt = at
	}), nil
}

func (r *memoryChallengeRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *memoryChallengeRepository) mutate(ctx context.Context, id string, apply func(*model.OTPChallenge)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[id]
	if !ok {
		return otperrors.ErrNotFound
	}
	r.recordLocked(ctx, c)
	apply(c)
	return nil
}

func (r *memoryChallengeRepository) updateWhere(ctx context.Context, match func(*model.OTPChallenge) bool, apply func(*model.OTPChallenge)) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, c := range r.challenges {
		if !match(c) {
			continue
		}
		r.recordLocked(ctx, c)
		apply(c)
		n++
	}
	return n
}

// recordLocked registers a restore of c's current state. Caller holds r.mu.
func (r *memoryChallengeRepository) recordLocked(ctx context.Context, c *model.OTPChallenge) {
	snapshot := c.Clone()
	memory.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.challenges[snapshot.ID] = snapshot
	})
}
