package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// TransactionSyncMessage queues a transaction for ledger export. It carries
// only identifiers; the worker fetches the full row from the database. For
// deletes the row is already gone, so the ID alone locates the ledger entry
// to remove.
type TransactionSyncMessage struct {
	Op        string    `json:"op"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, userID, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Op:        OpUpsert,
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewTransactionDeleteMessage(id, userID int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Op:        OpDelete,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
