package sheets

import (
	"context"

	"budgy/internal/core"
)

// Ledger is the outbound port the sync worker writes through. Rows are keyed
// by transaction ID so repeated upserts for the same transaction replace the
// existing row.
type Ledger interface {
	// Upsert writes or replaces the ledger row for a transaction.
	Upsert(ctx context.Context, userID int64, t core.Transaction) error

	// Remove deletes the ledger row for a transaction, if present.
	Remove(ctx context.Context, id int64) error
}
