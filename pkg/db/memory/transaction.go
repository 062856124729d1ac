// Package memory provides a process-local transaction manager for the
// in-memory repositories. Writes register undo steps through OnRollback and
// the steps run in reverse order when the transaction function fails.
// Transactions on one manager run one at a time, so the driver suits tests and
// single-process runs only.
package memory

import (
	"context"
	"medibook/pkg/db"
	"sync"
)

type journalKey struct{}

type journal struct {
	undo []func()
}

type TransactionManager struct {
	mu sync.Mutex
}

func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// ExecuteTransaction serializes transactions. Nested calls join the outer one.
func (m *TransactionManager) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

// OnRollback records an undo step for the transaction carried by ctx. It is a
// no-op outside a transaction.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(journalKey{}).(*journal)
	return ok
}
