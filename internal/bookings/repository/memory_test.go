package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "medibook/internal/bookings/errors"
	"medibook/pkg/db/memory"
	"medibook/pkg/model"
)

func booking(id, number, patient string, created time.Time, services ...*model.BookingService) *model.Booking {
	return &model.Booking{
		ID:            id,
		BookingNumber: number,
		PatientRef:    patient,
		BookingStatus: model.BookingPendingOTP,
		Services:      services,
		CreatedAt:     created,
	}
}

func TestMemoryRepository_UpdateChecksVersion(t *testing.T) {
	repo := NewMemoryBookingRepository(memory.NewTransactionManager())
	ctx := context.Background()

	b := booking("b1", "BK-1", "p1", time.Now())
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale, _ := repo.FindByID(ctx, "b1")
	fresh, _ := repo.FindByID(ctx, "b1")

	fresh.BookingStatus = model.BookingActive
	if err := repo.Update(ctx, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if fresh.Version != 1 {
		t.Errorf("version = %d, want 1", fresh.Version)
	}

	stale.BookingStatus = model.BookingCancelled
	if err := repo.Update(ctx, stale); !errors.Is(err, bookingserrors.ErrVersionConflict) {
		t.Errorf("stale update err = %v, want ErrVersionConflict", err)
	}

	got, _ := repo.FindByID(ctx, "b1")
	if got.BookingStatus != model.BookingActive {
		t.Errorf("status = %s, want active", got.BookingStatus)
	}
}

func TestMemoryRepository_RollbackRestores(t *testing.T) {
	tx := memory.NewTransactionManager()
	repo := NewMemoryBookingRepository(tx)
	ctx := context.Background()

	if err := repo.Create(ctx, booking("b1", "BK-1", "p1", time.Now())); err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	err := repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		b, _ := repo.FindByID(ctx, "b1")
		b.BookingStatus = model.BookingCancelled
		if err := repo.Update(ctx, b); err != nil {
			return err
		}
		if err := repo.Create(ctx, booking("b2", "BK-2", "p2", time.Now())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	got, _ := repo.FindByID(ctx, "b1")
	if got.BookingStatus != model.BookingPendingOTP || got.Version != 0 {
		t.Errorf("b1 not restored: %s v%d", got.BookingStatus, got.Version)
	}
	if _, err := repo.FindByID(ctx, "b2"); !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("b2 should be gone, err = %v", err)
	}
	if err := repo.Create(ctx, booking("b3", "BK-2", "p2", time.Now())); err != nil {
		t.Errorf("booking number should be free again: %v", err)
	}
}

func TestMemoryRepository_DuplicateNumber(t *testing.T) {
	repo := NewMemoryBookingRepository(memory.NewTransactionManager())
	ctx := context.Background()

	_ = repo.Create(ctx, booking("b1", "BK-1", "p1", time.Now()))
	if err := repo.Create(ctx, booking("b2", "BK-1", "p2", time.Now())); !errors.Is(err, bookingserrors.ErrDuplicateNumber) {
		t.Errorf("err = %v, want ErrDuplicateNumber", err)
	}
}

func TestMemoryRepository_FindAllPaginates(t *testing.T) {
	repo := NewMemoryBookingRepository(memory.NewTransactionManager())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"b1", "b2", "b3"} {
		_ = repo.Create(ctx, booking(id, "BK-"+id, "p", base.Add(time.Duration(i)*time.Hour)))
	}

	page, _ := repo.FindAll(ctx, 2, 0)
	if len(page) != 2 || page[0].ID != "b3" {
		t.Errorf("first page = %v", ids(page))
	}
	page, _ = repo.FindAll(ctx, 2, 2)
	if len(page) != 1 || page[0].ID != "b1" {
		t.Errorf("second page = %v", ids(page))
	}
	page, _ = repo.FindAll(ctx, 2, 10)
	if len(page) != 0 {
		t.Errorf("past the end = %v", ids(page))
	}
}

func ids(bs []*model.Booking) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func TestSearchFilter_Matches(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	from, to := day(2), day(3)

	b := booking("b1", "BK-20260302-AB12CD", "PAT-77", day(1),
		&model.BookingService{PractitionerRef: "dr-a", ScheduledDate: day(1)},
		&model.BookingService{PractitionerRef: "dr-b", ScheduledDate: day(2)},
	)

	tests := []struct {
		name   string
		filter SearchFilter
		want   bool
	}{
		{"empty", SearchFilter{}, true},
		{"number prefix any case", SearchFilter{Search: "bk-2026"}, true},
		{"patient prefix", SearchFilter{Search: "pat-7"}, true},
		{"infix does not match", SearchFilter{Search: "AB12"}, false},
		{"status", SearchFilter{Status: model.BookingActive}, false},
		{"assignee", SearchFilter{Assignee: "dr-a"}, true},
		{"date range", SearchFilter{From: &from, To: &to}, true},
		{"assignee and date on same service", SearchFilter{Assignee: "dr-b", From: &from, To: &to}, true},
		{"assignee and date on different services", SearchFilter{Assignee: "dr-a", From: &from, To: &to}, false},
		{"to is exclusive", SearchFilter{To: &from, From: &to}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(b); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
