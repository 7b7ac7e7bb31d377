// Package session binds one client connection to the protocol state
// machine: it parses inbound lines, enforces which commands are legal in
// the user's current state, and routes them to the registry and the
// challenge engine.
package session

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/player"
	"github.com/quizzleteam/quizd/internal/protocol"
)

// Engine is the slice of the challenge engine the session needs.
// Implemented by game.Engine.
type Engine interface {
	Issue(issuer, target *player.User) error
}

// Registrar creates new accounts. Implemented by register.Service.
type Registrar interface {
	Register(username, password string) error
}

// conn is the outbound half of the client connection, satisfied by
// network.Conn.
type conn interface {
	Submit(msg string)
	RemoteIP() string
}

// Deps carries the shared collaborators every session uses.
type Deps struct {
	Registry    *player.Registry
	Engine      Engine
	Registrar   Registrar
	Logger      *logrus.Logger
	LogMessages bool
}

// Session is the per-connection dispatcher. All methods run on the owning
// reactor's goroutine, so the user field needs no guard.
type Session struct {
	deps Deps
	conn conn
	user *player.User
}

func New(deps Deps, conn conn) *Session {
	return &Session{deps: deps, conn: conn}
}

// Dispatch handles one complete line from the client. A panic in a
// handler is downgraded to an INTERNAL_FAILURE response so that one bad
// message cannot take the connection down.
func (s *Session) Dispatch(line string) {
	defer func() {
		if err := recover(); err != nil {
			s.deps.Logger.Errorf("error handling message from %s: error=%s, trace: %s",
				s.conn.RemoteIP(), err, debug.Stack())
			s.conn.Submit(protocol.InternalFailure)
		}
	}()

	if s.deps.LogMessages {
		s.deps.Logger.Debugf("[%s] received: %s", s.conn.RemoteIP(), line)
	}

	cmd, args := protocol.Parse(line)

	if s.user == nil {
		s.dispatchAnonymous(cmd, args)
		return
	}
	s.dispatchAuthenticated(cmd, args)
}

func (s *Session) dispatchAnonymous(cmd string, args []string) {
	switch cmd {
	case protocol.CmdLogin:
		s.handleLogin(args)
	case protocol.CmdRegister:
		s.handleRegister(args)
	default:
		s.conn.Submit(protocol.InvalidCommand)
	}
}

func (s *Session) dispatchAuthenticated(cmd string, args []string) {
	switch cmd {
	case protocol.CmdLogout:
		s.handleLogout()
	case protocol.CmdFriendList:
		s.conn.Submit(protocol.FriendList(s.friendNames()))
	case protocol.CmdLeaderboard:
		s.conn.Submit(protocol.Leaderboard(s.deps.Registry.Leaderboard(s.user)))
	case protocol.CmdScore:
		s.conn.Submit(protocol.Score(s.user.Score()))
	case protocol.CmdAddFriend:
		s.handleAddFriend(args)
	case protocol.CmdChallenge:
		s.handleChallenge(args)
	case protocol.CmdAccept:
		s.handleAccept()
	case protocol.CmdReject:
		s.handleReject()
	case protocol.CmdCancel, protocol.CmdCloseWindow:
		s.handleCancel()
	case protocol.CmdWord:
		s.handleWord(args)
	default:
		s.conn.Submit(protocol.InvalidCommand)
	}
}

// Closed tears the session down after the connection has gone away. An
// in-flight challenge counts as quit by the disconnecting user.
func (s *Session) Closed() {
	if s.user == nil {
		return
	}
	if challenge := s.user.Challenge(); challenge != nil {
		challenge.AbortBy(s.user)
	}
	s.user.Drop()
	s.deps.Logger.Infof("dropped session for %s", s.user.Name())
	s.user = nil
}

func (s *Session) friendNames() []string {
	friends := s.user.Friends()
	names := make([]string, 0, len(friends))
	for _, friend := range friends {
		names = append(names, friend.Name())
	}
	return names
}
