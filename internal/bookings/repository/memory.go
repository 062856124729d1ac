package repository

import (
	"context"
	"sort"
	"sync"

	bookingserrors "medibook/internal/bookings/errors"
	"medibook/pkg/db"
	"medibook/pkg/db/memory"
	"medibook/pkg/model"
)

type memoryBookingRepository struct {
	mu        sync.RWMutex
	bookings  map[string]*model.Booking
	numbers   map[string]string
	txManager db.TransactionManager
}

func NewMemoryBookingRepository(txManager db.TransactionManager) BookingRepository {
	return &memoryBookingRepository{
		bookings:  make(map[string]*model.Booking),
		numbers:   make(map[string]string),
		txManager: txManager,
	}
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.numbers[booking.BookingNumber]; exists {
		return bookingserrors.ErrDuplicateNumber
	}
	r.bookings[booking.ID] = booking.Clone()
	r.numbers[booking.BookingNumber] = booking.ID

	id, number := booking.ID, booking.BookingNumber
	memory.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.bookings, id)
		delete(r.numbers, number)
	})
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *memoryBookingRepository) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	all := r.sorted(func(*model.Booking) bool { return true })
	if offset >= int64(len(all)) {
		return []*model.Booking{}, nil
	}
	end := min(int(offset)+limit, len(all))
	return all[offset:end], nil
}

func (r *memoryBookingRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.bookings)), nil
}

func (r *memoryBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bookings[booking.ID]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if current.Version != booking.Version {
		return bookingserrors.ErrVersionConflict
	}

	next := booking.Clone()
	next.Version++
	r.bookings[booking.ID] = next
	booking.Version = next.Version

	memory.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.bookings[current.ID] = current
	})
	return nil
}

func (r *memoryBookingRepository) Search(_ context.Context, filter SearchFilter) ([]*model.Booking, error) {
	return r.sorted(filter.Matches), nil
}

func (r *memoryBookingRepository) sorted(match func(*model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Booking{}
	for _, b := range r.bookings {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].BookingNumber > out[j].BookingNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
