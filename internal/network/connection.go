package network

import (
	"errors"
	"net"
	"strings"
	"sync"
)

// Longest inbound line the server will buffer. A peer that streams bytes
// without ever sending a newline gets disconnected rather than growing the
// partial-line buffer without bound.
const maxLineLength = 4096

var errLineTooLong = errors.New("inbound line exceeds maximum length")

// Conn wraps an accepted TCP connection with newline framing and a
// reactor-owned outbound buffer.
//
// Reads happen on a dedicated goroutine that forwards raw chunks to the
// owning reactor's event channel; only the reactor itself assembles chunks
// into complete lines and dispatches them. Writes are buffered: Submit may
// be called from any goroutine (timer callbacks, opponents' reactors) and
// the actual socket write happens on the owning reactor's loop.
type Conn struct {
	socket  net.Conn
	reactor *Reactor

	// Partial line carried over between reads. Only touched by the
	// owning reactor.
	rbuf strings.Builder

	wmu    sync.Mutex
	wbuf   []string
	closed bool

	dispatcher Dispatcher
	done       chan struct{}
}

func newConn(socket net.Conn, reactor *Reactor) *Conn {
	return &Conn{
		socket:  socket,
		reactor: reactor,
		done:    make(chan struct{}),
	}
}

// RemoteIP returns the IP address of the connected peer without the port.
func (c *Conn) RemoteIP() string {
	addr := c.socket.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Submit queues a message for delivery and wakes the owning reactor so
// that it gets flushed promptly. Messages submitted after the connection
// has closed are silently dropped.
func (c *Conn) Submit(message string) {
	c.wmu.Lock()
	if c.closed {
		c.wmu.Unlock()
		return
	}
	c.wbuf = append(c.wbuf, message)
	c.wmu.Unlock()

	c.reactor.Wake()
}

// takeOutbound swaps out the queued messages, leaving an empty buffer.
func (c *Conn) takeOutbound() []string {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	pending := c.wbuf
	c.wbuf = nil
	return pending
}

func (c *Conn) markClosed() {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.closed = true
	c.wbuf = nil
}

// ingest appends a chunk of raw bytes to the partial-line buffer and
// returns any complete lines it produced. A line is complete once its
// newline terminator has arrived; trailing bytes are held back until the
// next chunk. Empty lines are skipped. Any single line longer than
// maxLineLength is an error and the connection gets torn down.
func (c *Conn) ingest(data string) ([]string, error) {
	c.rbuf.WriteString(data)
	if !strings.Contains(data, "\n") {
		if c.rbuf.Len() > maxLineLength {
			return nil, errLineTooLong
		}
		return nil, nil
	}

	buffered := c.rbuf.String()
	c.rbuf.Reset()

	split := strings.Split(buffered, "\n")
	// The final element is either empty (the data ended on a newline) or
	// the beginning of the next line.
	c.rbuf.WriteString(split[len(split)-1])
	if c.rbuf.Len() > maxLineLength {
		return nil, errLineTooLong
	}

	var lines []string
	for _, line := range split[:len(split)-1] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if len(line) > maxLineLength {
			return nil, errLineTooLong
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// readLoop blocks on the socket and forwards each chunk of received data
// to the owning reactor. It exits when the peer disconnects or the reactor
// tears the connection down.
func (c *Conn) readLoop(events chan<- event) {
	buffer := make([]byte, 2048)

	for {
		n, err := c.socket.Read(buffer)
		if n > 0 {
			select {
			case events <- event{conn: c, data: string(buffer[:n])}:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case events <- event{conn: c, closed: true}:
			case <-c.done:
			}
			return
		}
	}
}
