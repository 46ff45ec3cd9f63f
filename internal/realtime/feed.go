package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"
)

// Feed fans collection changes out to other server instances so their live
// listeners refresh too. Messages carry the origin instance id; Database
// drops its own echoes.
type Feed interface {
	Publish(ctx context.Context, msg ChangeMessage) error
	// Run delivers incoming messages until ctx is done.
	Run(ctx context.Context, deliver func(ChangeMessage)) error
}

type ChangeMessage struct {
	Origin     string
	Collection string
}

func (m ChangeMessage) encode() string {
	return m.Origin + "|" + m.Collection
}

func decodeChange(payload string) (ChangeMessage, error) {
	origin, collection, ok := strings.Cut(payload, "|")
	if !ok || collection == "" {
		return ChangeMessage{}, fmt.Errorf("malformed change payload %q", payload)
	}
	return ChangeMessage{Origin: origin, Collection: collection}, nil
}

const ChangeChannel = "newsboard_changes"

// PostgresFeed uses LISTEN/NOTIFY on the primary database.
type PostgresFeed struct {
	db     *gorm.DB
	dsn    string
	logger *slog.Logger
}

func NewPostgresFeed(db *gorm.DB, dsn string, logger *slog.Logger) *PostgresFeed {
	return &PostgresFeed{db: db, dsn: dsn, logger: logger.With("component", "pg-feed")}
}

func (f *PostgresFeed) Publish(ctx context.Context, msg ChangeMessage) error {
	return f.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", ChangeChannel, msg.encode()).Error
}

func (f *PostgresFeed) Run(ctx context.Context, deliver func(ChangeMessage)) error {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return err
	}
	f.logger.Info("Listening for changes", "channel", ChangeChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		msg, err := decodeChange(n.Payload)
		if err != nil {
			f.logger.Warn("Dropping change notification", "error", err)
			continue
		}
		deliver(msg)
	}
}

const ChangeSubject = "newsboard.changes"

// NATSFeed publishes changes on a core NATS subject.
type NATSFeed struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewNATSFeed(url string, logger *slog.Logger) (*NATSFeed, error) {
	nc, err := nats.Connect(url, nats.Name("newsboard"))
	if err != nil {
		return nil, err
	}
	return &NATSFeed{nc: nc, logger: logger.With("component", "nats-feed")}, nil
}

func (f *NATSFeed) Publish(_ context.Context, msg ChangeMessage) error {
	return f.nc.Publish(ChangeSubject, []byte(msg.encode()))
}

func (f *NATSFeed) Run(ctx context.Context, deliver func(ChangeMessage)) error {
	sub, err := f.nc.Subscribe(ChangeSubject, func(m *nats.Msg) {
		msg, err := decodeChange(string(m.Data))
		if err != nil {
			f.logger.Warn("Dropping change message", "error", err)
			return
		}
		deliver(msg)
	})
	if err != nil {
		return err
	}
	f.logger.Info("Subscribed to changes", "subject", ChangeSubject)

	<-ctx.Done()
	return errors.Join(sub.Unsubscribe(), f.nc.Drain())
}
