package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Database wraps a Storage with refs, push keys, transactions and live
// listeners. It is shared by all clients of the process.
type Database struct {
	storage  Storage
	feed     Feed
	logger   *slog.Logger
	instance string
	hashCost int

	mu        sync.Mutex
	listeners map[string]map[*Listener]struct{}
}

type Option func(*Database)

// WithFeed publishes changes to other instances and refreshes local
// listeners on theirs. Run must be started for incoming changes.
func WithFeed(feed Feed) Option {
	return func(d *Database) { d.feed = feed }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) { d.logger = logger }
}

// WithHashCost sets the bcrypt cost for new accounts.
func WithHashCost(cost int) Option {
	return func(d *Database) { d.hashCost = cost }
}

func New(storage Storage, opts ...Option) *Database {
	d := &Database{
		storage:   storage,
		logger:    slog.Default(),
		instance:  uuid.NewString(),
		hashCost:  bcrypt.DefaultCost,
		listeners: make(map[string]map[*Listener]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "realtime")
	return d
}

// Get reads a query once.
func (d *Database) Get(ctx context.Context, q Query) (Snapshot, error) {
	if err := q.Validate(); err != nil {
		return Snapshot{}, err
	}
	children, err := d.storage.Query(ctx, q)
	if err != nil {
		return Snapshot{}, wrap("get", err)
	}
	snap := Snapshot{Ref: q.Ref, Children: children}

	if q.Ref.Key == "" || len(q.Ref.Path) == 0 || !snap.Exists() {
		return snap, nil
	}

	// 路径查询: 取文档内的子值
	var doc any
	if err := json.Unmarshal(children[0].Value, &doc); err != nil {
		return Snapshot{}, wrap("get", err)
	}
	v, ok := getPath(doc, q.Ref.Path)
	if !ok {
		return Snapshot{Ref: q.Ref}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}, wrap("get", err)
	}
	snap.Children = []Child{{Key: q.Ref.Path[len(q.Ref.Path)-1], Value: raw}}
	return snap, nil
}

// Push stores value under a new chronologically ordered key in the
// collection and returns the key.
func (d *Database) Push(ctx context.Context, ref Ref, value any) (string, error) {
	if ref.Key != "" {
		return "", newError(CodeInvalidQuery, "push", errors.New("push target must be a collection"))
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", wrap("push", err)
	}
	key := id.String()
	if err := d.Set(ctx, ref.Child(key), value); err != nil {
		return "", err
	}
	return key, nil
}

// Set replaces the value at ref.
func (d *Database) Set(ctx context.Context, ref Ref, value any) error {
	if ref.Key == "" {
		return newError(CodeInvalidQuery, "set", errors.New("set target must be a document"))
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return newError(CodeInvalidQuery, "set", err)
	}

	if len(ref.Path) == 0 {
		err = d.storage.Put(ctx, ref.Collection, ref.Key, raw)
	} else {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return newError(CodeInvalidQuery, "set", err)
		}
		err = d.storage.Transact(ctx, ref.Collection, ref.Key, func(current json.RawMessage) (json.RawMessage, error) {
			return patchDocument(current, ref.Path, v)
		})
	}
	if err != nil {
		return wrap("set", err)
	}
	d.changed(ctx, ref.Collection)
	return nil
}

// Remove deletes the value at ref. Removing something that does not exist
// succeeds.
func (d *Database) Remove(ctx context.Context, ref Ref) error {
	if ref.Key == "" {
		return newError(CodeInvalidQuery, "remove", errors.New("remove target must be a document"))
	}

	var err error
	if len(ref.Path) == 0 {
		err = d.storage.Delete(ctx, ref.Collection, ref.Key)
	} else {
		err = d.storage.Transact(ctx, ref.Collection, ref.Key, func(current json.RawMessage) (json.RawMessage, error) {
			if current == nil {
				return nil, nil
			}
			return patchDocument(current, ref.Path, nil)
		})
	}
	if err != nil {
		return wrap("remove", err)
	}
	d.changed(ctx, ref.Collection)
	return nil
}

// Transaction atomically replaces the value at ref with fn(current) and
// returns the committed value. The document must exist; current is nil when
// the path inside it is unset.
func (d *Database) Transaction(ctx context.Context, ref Ref, fn func(current any) (any, error)) (any, error) {
	if ref.Key == "" {
		return nil, newError(CodeInvalidQuery, "transaction", errors.New("transaction target must be a document"))
	}

	var committed any
	err := d.storage.Transact(ctx, ref.Collection, ref.Key, func(current json.RawMessage) (json.RawMessage, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		var doc any
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, err
		}
		cur, _ := getPath(doc, ref.Path)
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		committed = normalize(next)
		if len(ref.Path) == 0 {
			if next == nil {
				return nil, nil
			}
			return json.Marshal(next)
		}
		return patchDocument(current, ref.Path, committed)
	})
	if err != nil {
		return nil, wrap("transaction", err)
	}
	d.changed(ctx, ref.Collection)
	return committed, nil
}

// On attaches a live listener. fn receives the current snapshot right away
// and again after every change to the queried collection, always from the
// listener's own goroutine.
func (d *Database) On(q Query, fn func(Snapshot)) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		db:     d,
		query:  q,
		fn:     fn,
		dirty:  make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	d.mu.Lock()
	set, ok := d.listeners[q.Ref.Collection]
	if !ok {
		set = make(map[*Listener]struct{})
		d.listeners[q.Ref.Collection] = set
	}
	set[l] = struct{}{}
	d.mu.Unlock()

	activeListeners.Inc()
	l.signal()
	go l.run()
	return l
}

func (d *Database) detach(l *Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.listeners[l.query.Ref.Collection]
	if _, ok := set[l]; !ok {
		return
	}
	delete(set, l)
	activeListeners.Dec()
}

// Listeners returns the number of attached listeners.
func (d *Database) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, set := range d.listeners {
		n += len(set)
	}
	return n
}

func (d *Database) notify(collection string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for l := range d.listeners[collection] {
		l.signal()
	}
}

func (d *Database) changed(ctx context.Context, collection string) {
	d.notify(collection)
	if d.feed == nil {
		return
	}
	msg := ChangeMessage{Origin: d.instance, Collection: collection}
	if err := d.feed.Publish(context.WithoutCancel(ctx), msg); err != nil {
		d.logger.Warn("Failed to publish change", "collection", collection, "error", err)
	}
}

// Run consumes the change feed until ctx is done. Without a feed it just
// waits.
func (d *Database) Run(ctx context.Context) error {
	if d.feed == nil {
		<-ctx.Done()
		return nil
	}
	return d.feed.Run(ctx, func(msg ChangeMessage) {
		if msg.Origin == d.instance {
			return
		}
		d.notify(msg.Collection)
	})
}

func (d *Database) Close() error {
	return d.storage.Close()
}

func getPath(doc any, path []string) (any, bool) {
	cur := doc
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// patchDocument sets (or with v == nil deletes) the value at path inside the
// raw document, creating intermediate objects.
func patchDocument(current json.RawMessage, path []string, v any) (json.RawMessage, error) {
	doc := map[string]any{}
	if current != nil {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, err
		}
	}

	m := doc
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			if v == nil {
				return current, nil
			}
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	last := path[len(path)-1]
	if v == nil {
		delete(m, last)
	} else {
		m[last] = v
	}
	return json.Marshal(doc)
}
