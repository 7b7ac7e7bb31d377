package network

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// How long a single outbound flush may block before the peer is considered
// stalled and dropped. Flushing runs on the reactor goroutine, so a peer
// that stops draining its socket must not be allowed to hold up every
// other connection the reactor owns.
const defaultWriteTimeout = 10 * time.Second

// Dispatcher consumes the complete lines a connection produces. One
// Dispatcher instance is bound to each connection for its lifetime; all of
// its methods are invoked from the owning reactor's goroutine.
type Dispatcher interface {
	// Dispatch handles a single complete inbound line.
	Dispatch(line string)
	// Closed is called exactly once after the connection has gone away,
	// whether the peer disconnected or the server tore it down.
	Closed()
}

// event is the unit of work flowing from a connection's read goroutine to
// its reactor: either a chunk of raw data or a close notification.
type event struct {
	conn   *Conn
	data   string
	closed bool
}

// Reactor owns a set of connections and serializes all of their inbound
// dispatching and outbound flushing onto a single goroutine. Connections
// never migrate between reactors once assigned.
type Reactor struct {
	id            int
	events        chan event
	registrations chan *Conn
	wake          chan struct{}
	conns         map[*Conn]struct{}
	count         int64
	writeTimeout  time.Duration
	logger        *logrus.Logger
}

func newReactor(id int, logger *logrus.Logger) *Reactor {
	return &Reactor{
		id:            id,
		events:        make(chan event, 256),
		registrations: make(chan *Conn, 64),
		wake:          make(chan struct{}, 1),
		conns:         make(map[*Conn]struct{}),
		writeTimeout:  defaultWriteTimeout,
		logger:        logger,
	}
}

// Assign hands a connection to this reactor. Called from the acceptor
// goroutine; the reactor picks it up at the top of its next loop iteration.
func (r *Reactor) Assign(conn *Conn) {
	atomic.AddInt64(&r.count, 1)
	r.registrations <- conn
	r.Wake()
}

// Wake nudges the reactor loop without blocking. Multiple concurrent wakes
// collapse into one.
func (r *Reactor) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// ConnCount reports how many connections are assigned to this reactor,
// including ones still sitting in the registration queue.
func (r *Reactor) ConnCount() int64 {
	return atomic.LoadInt64(&r.count)
}

func (r *Reactor) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		r.drainRegistrations()

		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case ev := <-r.events:
			r.process(ev)
		case <-r.wake:
		}

		r.flushAll()
	}
}

// drainRegistrations adopts any connections queued by the acceptor and
// starts their read goroutines.
func (r *Reactor) drainRegistrations() {
	for {
		select {
		case conn := <-r.registrations:
			r.conns[conn] = struct{}{}
			go conn.readLoop(r.events)
			r.logger.Debugf("[reactor %d] adopted connection from %s", r.id, conn.RemoteIP())
		default:
			return
		}
	}
}

// process handles one event from a connection's read goroutine. A panic in
// a dispatcher must not take the reactor (and every connection it owns)
// down with it, so dispatching runs under a recover that tears down only
// the offending connection.
func (r *Reactor) process(ev event) {
	if _, ok := r.conns[ev.conn]; !ok {
		// Stale event from a connection already torn down.
		return
	}

	if ev.closed {
		r.teardown(ev.conn)
		return
	}

	defer func() {
		if err := recover(); err != nil {
			r.logger.Errorf("error in connection handling for %s: error=%s, trace: %s",
				ev.conn.RemoteIP(), err, debug.Stack())
			r.teardown(ev.conn)
		}
	}()

	lines, err := ev.conn.ingest(ev.data)
	if err != nil {
		r.logger.Warnf("[reactor %d] dropping %s: %s", r.id, ev.conn.RemoteIP(), err)
		r.teardown(ev.conn)
		return
	}
	for _, line := range lines {
		ev.conn.dispatcher.Dispatch(line)
	}
}

// flushAll writes out the queued outbound messages of every connection,
// each message terminated by a newline. Writes carry a deadline; a peer
// that stops draining gets dropped instead of blocking the loop.
func (r *Reactor) flushAll() {
	for conn := range r.conns {
		pending := conn.takeOutbound()
		if len(pending) == 0 {
			continue
		}
		if err := conn.socket.SetWriteDeadline(time.Now().Add(r.writeTimeout)); err != nil {
			r.teardown(conn)
			continue
		}
		for _, message := range pending {
			if _, err := conn.socket.Write([]byte(message + "\n")); err != nil {
				r.logger.Warnf("[reactor %d] write to %s failed: %s", r.id, conn.RemoteIP(), err)
				r.teardown(conn)
				break
			}
		}
	}
}

// teardown closes a connection and notifies its dispatcher. Safe to call
// more than once per connection; only the first call does anything.
func (r *Reactor) teardown(conn *Conn) {
	if _, ok := r.conns[conn]; !ok {
		return
	}
	delete(r.conns, conn)
	atomic.AddInt64(&r.count, -1)

	conn.markClosed()
	close(conn.done)
	if err := conn.socket.Close(); err != nil {
		r.logger.Debugf("[reactor %d] error closing connection: %s", r.id, err)
	}

	conn.dispatcher.Closed()
	r.logger.Infof("[reactor %d] disconnected client %s", r.id, conn.RemoteIP())
}

func (r *Reactor) shutdown() {
	for conn := range r.conns {
		r.teardown(conn)
	}
	r.logger.Infof("[reactor %d] exited", r.id)
}

// Pool is a fixed set of reactors over which connections are balanced.
type Pool struct {
	reactors []*Reactor
}

// NewPool creates size reactors, defaulting to the number of CPUs when
// size is not positive.
func NewPool(size int, logger *logrus.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	reactors := make([]*Reactor, size)
	for i := range reactors {
		reactors[i] = newReactor(i, logger)
	}
	return &Pool{reactors: reactors}
}

// Start launches every reactor loop. Context cancellation stops them all.
func (p *Pool) Start(ctx context.Context, wg *sync.WaitGroup) {
	for _, r := range p.reactors {
		wg.Add(1)
		go r.run(ctx, wg)
	}
}

// Least returns the reactor currently carrying the fewest connections.
func (p *Pool) Least() *Reactor {
	least := p.reactors[0]
	for _, r := range p.reactors[1:] {
		if r.ConnCount() < least.ConnCount() {
			least = r
		}
	}
	return least
}

// ConnCount reports the total connections across the pool.
func (p *Pool) ConnCount() int64 {
	var total int64
	for _, r := range p.reactors {
		total += r.ConnCount()
	}
	return total
}
