// Package tx defines the transaction boundary contract shared by all
// domain services. The concrete manager lives in infrastructure/storage/postgres;
// services only see these interfaces.
package tx

import "context"

// Manager runs a function inside a database transaction.
//
// Allocation, receipt and adjustment flows depend on this boundary: the lot
// row locks they take are only meaningful while the surrounding transaction
// is open, and the ledger entry must commit together with the lot mutation.
type Manager interface {
	// RunInTransaction executes fn within a transaction, committing on nil
	// and rolling back on error. Nested calls join the transaction already
	// carried by ctx.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager for flows that only read
// (report queries, AMC computation). Read-only transactions take no row locks.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction; writes inside fn fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
