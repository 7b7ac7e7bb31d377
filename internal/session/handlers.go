package session

import (
	"errors"
	"strconv"
	"strings"

	"github.com/quizzleteam/quizd/internal/game"
	"github.com/quizzleteam/quizd/internal/player"
	"github.com/quizzleteam/quizd/internal/protocol"
	"github.com/quizzleteam/quizd/internal/register"
)

// handleLogin expects login:<username>:<password>:<udp port>. The UDP port
// is where the client listens for out-of-band challenge notifications.
func (s *Session) handleLogin(args []string) {
	if len(args) < 3 || args[0] == "" || args[1] == "" {
		s.conn.Submit(protocol.NoUserPassFailure)
		return
	}
	username, password := args[0], args[1]
	udpPort, err := strconv.Atoi(args[2])
	if err != nil || udpPort <= 0 || udpPort > 65535 {
		s.conn.Submit(protocol.NoUserPassFailure)
		return
	}

	user, ok := s.deps.Registry.Lookup(username)
	if !ok {
		s.conn.Submit(protocol.UserNotExistsFailure(username))
		return
	}
	if !user.CheckPassword(password) {
		s.conn.Submit(protocol.LoginFailure)
		return
	}
	if !user.Bind(s.conn, udpPort) {
		s.conn.Submit(protocol.AlreadyLoggedInFailure(username))
		return
	}

	s.user = user
	s.conn.Submit(protocol.LoginSuccess(username))
	s.deps.Logger.Infof("user %s logged in from %s", username, s.conn.RemoteIP())
}

func (s *Session) handleRegister(args []string) {
	if len(args) < 2 {
		s.conn.Submit(protocol.NoUserPassFailure)
		return
	}
	username, password := args[0], args[1]

	switch err := s.deps.Registrar.Register(username, password); {
	case err == nil:
		s.conn.Submit(protocol.RegistrationSuccess)
	case errors.Is(err, register.ErrInvalidUsername):
		s.conn.Submit(protocol.UsernameInvalidFailure)
	case errors.Is(err, register.ErrInvalidPassword):
		s.conn.Submit(protocol.PasswordInvalidFailure)
	case errors.Is(err, register.ErrUserExists):
		s.conn.Submit(protocol.UsernameExistsFailure(username))
	default:
		s.deps.Logger.Errorf("registration failed for %s: %v", username, err)
		s.conn.Submit(protocol.InternalFailure)
	}
}

func (s *Session) handleLogout() {
	user := s.user
	if challenge := user.Challenge(); challenge != nil {
		challenge.AbortBy(user)
	}
	s.conn.Submit(protocol.Logout(user.Name()))
	user.Logout()
	s.user = nil
	s.deps.Logger.Infof("user %s logged out", user.Name())
}

func (s *Session) handleAddFriend(args []string) {
	if len(args) < 1 || args[0] == "" {
		s.conn.Submit(protocol.NoUsernameFailure)
		return
	}
	friend := args[0]

	switch err := s.deps.Registry.AddFriendship(s.user, friend); {
	case err == nil:
		s.conn.Submit(protocol.AddFriendSuccess(s.user.Name(), friend))
	case errors.Is(err, player.ErrSelfFriend):
		s.conn.Submit(protocol.SelfFriendFailure)
	case errors.Is(err, player.ErrUnknownUser):
		s.conn.Submit(protocol.UserNotExistsFailure(friend))
	case errors.Is(err, player.ErrAlreadyFriends):
		s.conn.Submit(protocol.AlreadyFriendsFailure(friend))
	default:
		s.deps.Logger.Errorf("add friend failed for %s/%s: %v", s.user.Name(), friend, err)
		s.conn.Submit(protocol.InternalFailure)
	}
}

// handleChallenge expects sfida:<username>. Only idle users can challenge,
// only friends can be challenged, and the target must be online and idle.
func (s *Session) handleChallenge(args []string) {
	if s.user.State() != player.StateIdle {
		s.conn.Submit(protocol.InvalidCommand)
		return
	}
	if len(args) < 1 || args[0] == "" {
		s.conn.Submit(protocol.NoUsernameFailure)
		return
	}
	targetName := args[0]

	if !s.user.IsFriend(targetName) {
		s.conn.Submit(protocol.NotFriendsFailure(targetName))
		return
	}
	target, ok := s.deps.Registry.Lookup(targetName)
	if !ok {
		s.conn.Submit(protocol.UserNotExistsFailure(targetName))
		return
	}
	if target.State() != player.StateIdle {
		s.conn.Submit(protocol.NotIdleFailure(targetName))
		return
	}

	switch err := s.deps.Engine.Issue(s.user, target); {
	case err == nil:
		s.conn.Submit(protocol.WaitingResponse)
	case errors.Is(err, game.ErrTargetBusy):
		s.conn.Submit(protocol.NotIdleFailure(targetName))
	case errors.Is(err, game.ErrIssuerBusy):
		s.conn.Submit(protocol.InvalidCommand)
	default:
		s.deps.Logger.Errorf("challenge from %s to %s failed: %v", s.user.Name(), targetName, err)
		s.conn.Submit(protocol.InternalFailure)
	}
}

func (s *Session) handleAccept() {
	if s.user.State() != player.StateChallenged {
		s.conn.Submit(protocol.InvalidCommand)
		return
	}
	if challenge := s.user.Challenge(); challenge != nil {
		challenge.Accept()
	}
}

func (s *Session) handleReject() {
	if s.user.State() != player.StateChallenged {
		s.conn.Submit(protocol.InvalidCommand)
		return
	}
	if challenge := s.user.Challenge(); challenge != nil {
		challenge.AbortBy(s.user)
	}
}

// handleCancel lets the issuer withdraw a pending invitation or either
// player walk out of a running match. The graphical client's "close"
// (challenge window closed) goes through here too.
func (s *Session) handleCancel() {
	state := s.user.State()
	if state != player.StateChallengeIssued && state != player.StateInGame {
		s.conn.Submit(protocol.InvalidCommand)
		return
	}
	if challenge := s.user.Challenge(); challenge != nil {
		challenge.AbortBy(s.user)
	}
}

// handleWord expects word:<answer>. Answers may themselves contain colons,
// so the argument list is rejoined rather than truncated.
func (s *Session) handleWord(args []string) {
	if s.user.State() != player.StateInGame {
		s.conn.Submit(protocol.InvalidCommand)
		return
	}
	answer := strings.Join(args, ":")
	if challenge := s.user.Challenge(); challenge != nil {
		challenge.SubmitWord(s.user, answer)
	}
}
