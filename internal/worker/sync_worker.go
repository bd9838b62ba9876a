package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgy/internal/amqp"
	"budgy/internal/core"
	"budgy/internal/sheets"
	"budgy/internal/storage"
)

// SyncWorker exports transactions from SQLite to the ledger. AMQP messages
// drive the common path; the periodic pending sweep recovers anything the
// broker dropped.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    sheets.Ledger
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, ledger sheets.Ledger, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleMessage processes one sync message from AMQP.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	switch msg.Op {
	case amqp.OpDelete:
		return w.handleDelete(ctx, msg)
	case amqp.OpUpsert, "":
		return w.handleUpsert(ctx, msg)
	default:
		slog.WarnContext(ctx, "Unknown sync op, dropping message", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) handleUpsert(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)

	t, userID, err := w.storage.GetTransactionForSync(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// deleted before the message was consumed
		slog.WarnContext(ctx, "Transaction no longer exists, dropping sync message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.export(ctx, userID, t)
}

func (w *SyncWorker) handleDelete(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if err := w.ledger.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove ledger row: %w", err)
	}
	return nil
}

// ProcessPending sweeps transactions still marked pending. Backup for lost
// AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	return w.exportBatch(ctx, pending)
}

// StartupSyncCheck drains the backlog at worker startup with a larger
// batch. It also retries rows stranded in the error state, which the
// periodic sweep skips, so a past export outage heals on restart.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	backlog, err := w.storage.GetUnsyncedTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get unsynced transactions: %w", err)
	}
	return w.exportBatch(ctx, backlog)
}

func (w *SyncWorker) exportBatch(ctx context.Context, pending []storage.PendingSyncTransaction) error {
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		t, userID, err := w.storage.GetTransactionForSync(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction", "id", p.ID, "error", err)
			if markErr := w.storage.MarkSyncError(ctx, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", markErr)
			}
			failed++
			continue
		}

		if err := w.export(ctx, userID, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) export(ctx context.Context, userID int64, t *core.Transaction) error {
	if err := w.ledger.Upsert(ctx, userID, *t); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("upsert ledger row: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, t.ID); err != nil {
		// the export itself worked
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", t.ID,
		"user_id", userID,
		"amount", t.Amount.String())
	return nil
}
