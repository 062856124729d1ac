package memory

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteTransaction_RollsBackInReverseOrder(t *testing.T) {
	tm := NewTransactionManager()
	var order []int
	boom := errors.New("boom")

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		OnRollback(ctx, func() { order = append(order, 1) })
		OnRollback(ctx, func() { order = append(order, 2) })
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("undo order = %v, want [2 1]", order)
	}
}

func TestExecuteTransaction_CommitSkipsUndo(t *testing.T) {
	tm := NewTransactionManager()
	called := false

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		OnRollback(ctx, func() { called = true })
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("undo must not run on commit")
	}
}

func TestExecuteTransaction_NestedJoinsOuter(t *testing.T) {
	tm := NewTransactionManager()
	undone := 0
	boom := errors.New("boom")

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		if err := tm.ExecuteTransaction(ctx, func(inner context.Context) error {
			OnRollback(inner, func() { undone++ })
			return nil
		}); err != nil {
			return err
		}
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if undone != 1 {
		t.Errorf("inner undo ran %d times, want 1", undone)
	}
}

func TestOnRollback_OutsideTransactionIsNoop(t *testing.T) {
	ctx := context.Background()
	OnRollback(ctx, func() { t.Error("should not be recorded") })
	if InTransaction(ctx) {
		t.Error("background context is not a transaction")
	}
}
