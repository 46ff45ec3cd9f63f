// Package realtime is a small real-time tree database: JSON documents stored
// under collection/key, ordered queries, live listeners, push keys with a
// chronological order, read-modify-write transactions and password accounts.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Ref points at a collection, a document in it, or a path inside a document.
type Ref struct {
	Collection string
	Key        string
	Path       []string
}

// Collection returns a reference to a top level collection.
func Collection(name string) Ref {
	return Ref{Collection: name}
}

// Child descends one level: the first call selects the document key, the
// following ones walk into the document.
func (r Ref) Child(name string) Ref {
	if r.Key == "" {
		r.Key = name
		return r
	}
	r.Path = append(append([]string(nil), r.Path...), name)
	return r
}

// Parent drops the last path segment (or the key).
func (r Ref) Parent() Ref {
	switch {
	case len(r.Path) > 0:
		r.Path = r.Path[:len(r.Path)-1]
	case r.Key != "":
		r.Key = ""
	}
	return r
}

func (r Ref) String() string {
	parts := lo.Filter(append([]string{r.Collection, r.Key}, r.Path...), func(s string, _ int) bool {
		return s != ""
	})
	return strings.Join(parts, "/")
}

// Query returns an unordered query over the reference.
func (r Ref) Query() Query {
	return Query{Ref: r}
}

// OrderByChild starts an ordered query over the children of a collection.
func (r Ref) OrderByChild(field string) Query {
	return Query{Ref: r, OrderBy: field}
}

// Query describes which children of a collection a snapshot contains. A query
// on a document reference returns that document only.
type Query struct {
	Ref     Ref
	OrderBy string
	Equal   any
	Start   any
	End     any
	Last    int

	hasEqual, hasStart, hasEnd bool
}

func (q Query) EqualTo(v any) Query {
	q.Equal, q.hasEqual = v, true
	return q
}

func (q Query) StartAt(v any) Query {
	q.Start, q.hasStart = v, true
	return q
}

func (q Query) EndAt(v any) Query {
	q.End, q.hasEnd = v, true
	return q
}

// LimitToLast keeps only the last n children in query order.
func (q Query) LimitToLast(n int) Query {
	q.Last = n
	return q
}

func (q Query) HasEqual() bool { return q.hasEqual }
func (q Query) HasStart() bool { return q.hasStart }
func (q Query) HasEnd() bool   { return q.hasEnd }

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate checks names that end up inside storage queries.
func (q Query) Validate() error {
	if q.Ref.Collection == "" || !fieldPattern.MatchString(q.Ref.Collection) {
		return newError(CodeInvalidQuery, "query", fmt.Errorf("bad collection %q", q.Ref.Collection))
	}
	if q.OrderBy != "" && !fieldPattern.MatchString(q.OrderBy) {
		return newError(CodeInvalidQuery, "query", fmt.Errorf("bad order field %q", q.OrderBy))
	}
	if q.OrderBy == "" && (q.hasEqual || q.hasStart || q.hasEnd) {
		return newError(CodeInvalidQuery, "query", errors.New("range filter without orderByChild"))
	}
	if q.Last < 0 {
		return newError(CodeInvalidQuery, "query", fmt.Errorf("negative limit %d", q.Last))
	}
	return nil
}

// Child is one entry of a snapshot.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Decode unmarshals the child value.
func (c Child) Decode(v any) error {
	return json.Unmarshal(c.Value, v)
}

// Snapshot is a point-in-time ordered result of a query.
type Snapshot struct {
	Ref      Ref
	Children []Child
}

func (s Snapshot) Exists() bool {
	return len(s.Children) > 0
}

func (s Snapshot) Len() int {
	return len(s.Children)
}

// Val decodes the first child; used for document snapshots.
func (s Snapshot) Val(v any) error {
	if !s.Exists() {
		return newError(CodeNotFound, "val", ErrNotFound)
	}
	return s.Children[0].Decode(v)
}

// Keys lists child keys in snapshot order.
func (s Snapshot) Keys() []string {
	return lo.Map(s.Children, func(c Child, _ int) string { return c.Key })
}

// Credentials 邮箱密码登录凭证
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthData is the state of an authenticated client.
type AuthData struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}
