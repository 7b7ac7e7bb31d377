package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DispatcherFactory builds the Dispatcher that will handle a newly
// accepted connection.
type DispatcherFactory func(conn *Conn) Dispatcher

// Acceptor owns the listening socket and hands each accepted connection to
// the least-loaded reactor in the pool.
type Acceptor struct {
	Pool           *Pool
	Factory        DispatcherFactory
	MaxConnections int
	Logger         *logrus.Logger
}

// Start opens a TCP socket on the provided address and spins off a
// blocking accept loop in its own goroutine, added to the WaitGroup.
// Context cancellation stops the loop.
func (a *Acceptor) Start(ctx context.Context, addr string, wg *sync.WaitGroup) error {
	socket, err := a.createSocket(addr)
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", addr, err)
	}

	wg.Add(1)
	go a.startBlockingLoop(ctx, socket, wg)

	return nil
}

func (a *Acceptor) createSocket(addr string) (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s", err.Error())
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}

	return socket, nil
}

func (a *Acceptor) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	a.Logger.Printf("waiting for connections on %v", socket.Addr())

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for a.MaxConnections > 0 && a.Pool.ConnCount() >= int64(a.MaxConnections) {
				time.Sleep(10 * time.Second)
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				// The listener was closed out from under us by shutdown.
				if errors.Is(err, net.ErrClosed) {
					return
				}
				a.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			select {
			case connections <- connection:
			case <-ctx.Done():
				_ = connection.Close()
				return
			}
		}
	}()

handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			a.acceptClient(connection)
		}
	}

	a.Logger.Infof("acceptor shutting down")
	if err := socket.Close(); err != nil {
		a.Logger.Warnf("failed to close listening socket: %s", err)
	}
}

// acceptClient wraps the raw socket, binds a dispatcher to it, and assigns
// it to the least-loaded reactor.
func (a *Acceptor) acceptClient(connection *net.TCPConn) {
	reactor := a.Pool.Least()
	conn := newConn(connection, reactor)
	conn.dispatcher = a.Factory(conn)

	a.Logger.Infof("accepted connection from %s", conn.RemoteIP())
	reactor.Assign(conn)
}
