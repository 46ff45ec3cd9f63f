package realtime

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeListeners = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "newsboard_realtime_listeners",
	Help: "Live query listeners currently attached.",
})

// Listener is a live query. Change signals are coalesced: a burst of writes
// triggers at least one fresh snapshot, not one per write.
type Listener struct {
	db    *Database
	query Query
	fn    func(Snapshot)
	dirty chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (l *Listener) Query() Query {
	return l.query
}

// Off detaches the listener. Safe to call more than once and from inside
// the callback. A delivery already running when Off is called still finishes.
func (l *Listener) Off() {
	l.once.Do(func() {
		l.db.detach(l)
		l.cancel()
	})
}

func (l *Listener) signal() {
	select {
	case l.dirty <- struct{}{}:
	default:
		// 已有待处理的刷新
	}
}

func (l *Listener) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.dirty:
		}

		snap, err := l.db.Get(l.ctx, l.query)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			l.db.logger.Warn("Live query failed", "ref", l.query.Ref.String(), "error", err)
			continue
		}
		if l.ctx.Err() != nil {
			return
		}
		l.fn(snap)
	}
}
