package realtime

import (
	"context"
	"encoding/json"

	"newsboard/internal/models"
)

// Storage is the persistence backend behind a Database. Implementations do
// not notify listeners; Database does that after each successful write.
type Storage interface {
	// Query returns the children selected by q in ascending order. A query
	// on a document reference returns at most that document.
	Query(ctx context.Context, q Query) ([]Child, error)
	Put(ctx context.Context, collection, key string, value json.RawMessage) error
	// Delete removes a document; a missing document is not an error.
	Delete(ctx context.Context, collection, key string) error
	// Transact reads the document under an exclusive lock and replaces it
	// with fn's result. current is nil when the document does not exist; a
	// nil result deletes it.
	Transact(ctx context.Context, collection, key string, fn func(current json.RawMessage) (json.RawMessage, error)) error

	CreateAccount(ctx context.Context, account *models.Account) error
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)

	Close() error
}
