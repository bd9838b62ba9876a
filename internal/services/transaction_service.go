package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgy/internal/amqp"
	"budgy/internal/core"
	"budgy/internal/storage"
)

// TransactionService orchestrates transaction mutations across SQLite and
// AMQP. The database write is authoritative; sync messages are best effort
// and the worker's periodic sweep covers anything the broker missed.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Create normalizes the amount, validates the transaction and applies it
// atomically with its balance, budget and pot effects.
func (s *TransactionService) Create(ctx context.Context, userID int64, t core.Transaction) (*core.Transaction, error) {
	t.Amount = core.NormalizeAmount(t.Type, t.Amount)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.CreateTransaction(ctx, userID, &t); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, t.ID, userID, 1)
	return &t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID int64, t core.Transaction) (*core.Transaction, error) {
	t.Amount = core.NormalizeAmount(t.Type, t.Amount)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	version, err := s.storage.UpdateTransaction(ctx, userID, &t)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.publishSync(ctx, t.ID, userID, version)
	return &t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.PublishTransactionDelete(ctx, id, userID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
		}
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID)
}

func (s *TransactionService) ListByType(ctx context.Context, userID int64, t core.TransactionType) ([]core.Transaction, error) {
	return s.storage.ListTransactionsByType(ctx, userID, t)
}

func (s *TransactionService) ListInRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	return s.storage.ListTransactionsInRange(ctx, userID, from, to)
}

func (s *TransactionService) publishSync(ctx context.Context, id, userID, version int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}

	if err := s.amqpClient.PublishTransactionSync(ctx, id, userID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
