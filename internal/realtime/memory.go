package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"newsboard/internal/models"
)

// MemoryStorage keeps everything in process memory. Used for local runs
// (STORAGE=memory) and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	nodes    map[string]map[string]json.RawMessage
	accounts map[string]models.Account // email -> account
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nodes:    make(map[string]map[string]json.RawMessage),
		accounts: make(map[string]models.Account),
	}
}

func (s *MemoryStorage) Query(ctx context.Context, q Query) ([]Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.nodes[q.Ref.Collection]
	if q.Ref.Key != "" {
		v, ok := coll[q.Ref.Key]
		if !ok {
			return nil, nil
		}
		return []Child{{Key: q.Ref.Key, Value: clone(v)}}, nil
	}

	children := make([]Child, 0, len(coll))
	for k, v := range coll {
		children = append(children, Child{Key: k, Value: clone(v)})
	}
	return applyQuery(children, q), nil
}

func (s *MemoryStorage) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, key, value)
	return nil
}

func (s *MemoryStorage) put(collection, key string, value json.RawMessage) {
	coll, ok := s.nodes[collection]
	if !ok {
		coll = make(map[string]json.RawMessage)
		s.nodes[collection] = coll
	}
	coll[key] = clone(value)
}

func (s *MemoryStorage) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes[collection], key)
	return nil
}

func (s *MemoryStorage) Transact(ctx context.Context, collection, key string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current json.RawMessage
	if v, ok := s.nodes[collection][key]; ok {
		current = clone(v)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.nodes[collection], key)
		return nil
	}
	s.put(collection, key, next)
	return nil
}

func (s *MemoryStorage) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := s.accounts[email]; ok {
		return ErrEmailTaken
	}
	s.accounts[email] = *account
	return nil
}

func (s *MemoryStorage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// Accounts returns the number of registered accounts.
func (s *MemoryStorage) Accounts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *MemoryStorage) Close() error {
	return nil
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}
