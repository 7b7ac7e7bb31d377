package session

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzleteam/quizd/internal/game"
	"github.com/quizzleteam/quizd/internal/player"
	"github.com/quizzleteam/quizd/internal/protocol"
	"github.com/quizzleteam/quizd/internal/register"
)

type nullStore struct{}

func (nullStore) LoadAll() ([]player.Snapshot, error) { return nil, nil }
func (nullStore) CreateUser(_, _ string) error        { return nil }
func (nullStore) SaveScore(_ string, _ int) error     { return nil }
func (nullStore) SaveFriendship(_, _ string) error    { return nil }

type fakeConn struct {
	msgs []string
}

func (c *fakeConn) Submit(msg string) { c.msgs = append(c.msgs, msg) }
func (c *fakeConn) RemoteIP() string  { return "127.0.0.1" }

func (c *fakeConn) last() string {
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

type fakeEngine struct {
	issued [][2]string
	err    error
}

func (e *fakeEngine) Issue(issuer, target *player.User) error {
	e.issued = append(e.issued, [2]string{issuer.Name(), target.Name()})
	return e.err
}

type stubChallenge struct {
	accepted  bool
	abortedBy string
	words     []string
}

func (s *stubChallenge) ID() string { return "stub" }
func (s *stubChallenge) Accept()    { s.accepted = true }
func (s *stubChallenge) AbortBy(quitter *player.User) {
	s.abortedBy = quitter.Name()
	quitter.LeaveChallenge()
}
func (s *stubChallenge) SubmitWord(_ *player.User, answer string) {
	s.words = append(s.words, answer)
}

type fixture struct {
	deps     Deps
	registry *player.Registry
	engine   *fakeEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := player.NewRegistry(nullStore{}, logger)
	engine := &fakeEngine{}
	return &fixture{
		deps: Deps{
			Registry:  registry,
			Engine:    engine,
			Registrar: &register.Service{Registry: registry, Logger: logger},
			Logger:    logger,
		},
		registry: registry,
		engine:   engine,
	}
}

func (f *fixture) addUser(t *testing.T, name, password string) *player.User {
	t.Helper()
	require.NoError(t, f.deps.Registrar.Register(name, password))
	user, ok := f.registry.Lookup(name)
	require.True(t, ok)
	return user
}

// login creates a fresh session already authenticated as the named user.
func (f *fixture) login(t *testing.T, name, password string) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	session := New(f.deps, conn)
	session.Dispatch("login:" + name + ":" + password + ":4000")
	require.Equal(t, protocol.LoginSuccess(name), conn.last())
	return session, conn
}

func TestSession_Login(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "missing arguments",
			line: "login:anna",
			want: protocol.NoUserPassFailure,
		},
		{
			name: "bad udp port",
			line: "login:anna:secret:notaport",
			want: protocol.NoUserPassFailure,
		},
		{
			name: "unknown user",
			line: "login:nobody:secret:4000",
			want: protocol.UserNotExistsFailure("nobody"),
		},
		{
			name: "wrong password",
			line: "login:anna:wrong:4000",
			want: protocol.LoginFailure,
		},
		{
			name: "successful login",
			line: "login:anna:secret:4000",
			want: protocol.LoginSuccess("anna"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addUser(t, "anna", "secret")

			conn := &fakeConn{}
			New(f.deps, conn).Dispatch(tt.line)
			assert.Equal(t, tt.want, conn.last())
		})
	}
}

func TestSession_LoginNotifiesIdleState(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "anna", "secret")

	_, conn := f.login(t, "anna", "secret")
	assert.Contains(t, conn.msgs, protocol.SetState("IDLE"))
}

func TestSession_SecondLoginRejected(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "anna", "secret")
	f.login(t, "anna", "secret")

	otherConn := &fakeConn{}
	New(f.deps, otherConn).Dispatch("login:anna:secret:4000")
	assert.Equal(t, protocol.AlreadyLoggedInFailure("anna"), otherConn.last())
}

func TestSession_Register(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "successful registration",
			line: "register:marco:password",
			want: protocol.RegistrationSuccess,
		},
		{
			name: "invalid username",
			line: "register:not a name:password",
			want: protocol.UsernameInvalidFailure,
		},
		{
			name: "empty password",
			line: "register:marco:",
			want: protocol.PasswordInvalidFailure,
		},
		{
			name: "duplicate username",
			line: "register:anna:password",
			want: protocol.UsernameExistsFailure("anna"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addUser(t, "anna", "secret")

			conn := &fakeConn{}
			New(f.deps, conn).Dispatch(tt.line)
			assert.Equal(t, tt.want, conn.last())
		})
	}
}

func TestSession_CommandsRequireLogin(t *testing.T) {
	f := newFixture(t)
	conn := &fakeConn{}
	session := New(f.deps, conn)

	for _, line := range []string{"mostra_punteggio", "sfida:anna", "logout", "word:dog"} {
		session.Dispatch(line)
		assert.Equal(t, protocol.InvalidCommand, conn.last(), "line %q", line)
	}
}

func TestSession_Logout(t *testing.T) {
	f := newFixture(t)
	anna := f.addUser(t, "anna", "secret")
	session, conn := f.login(t, "anna", "secret")

	session.Dispatch("logout")
	assert.Equal(t, protocol.Logout("anna"), conn.last())
	assert.Equal(t, player.StateOffline, anna.State())

	// The connection is back to anonymous; only login/register work.
	session.Dispatch("mostra_punteggio")
	assert.Equal(t, protocol.InvalidCommand, conn.last())
}

func TestSession_ScoreAndFriends(t *testing.T) {
	f := newFixture(t)
	anna := f.addUser(t, "anna", "secret")
	f.addUser(t, "marco", "secret")
	session, conn := f.login(t, "anna", "secret")

	session.Dispatch("mostra_punteggio")
	assert.Equal(t, protocol.Score(0), conn.last())

	session.Dispatch("lista_amici")
	assert.Equal(t, protocol.FriendList([]string{}), conn.last())

	session.Dispatch("aggiungi_amico:marco")
	assert.Equal(t, protocol.AddFriendSuccess("anna", "marco"), conn.last())

	session.Dispatch("lista_amici")
	assert.Equal(t, protocol.FriendList([]string{"marco"}), conn.last())

	anna.AdjustScore(5)
	session.Dispatch("mostra_classifica")
	assert.Equal(t, protocol.Leaderboard([]protocol.ScoreEntry{
		{Name: "anna", Score: 5},
		{Name: "marco", Score: 0},
	}), conn.last())
}

func TestSession_AddFriendFailures(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "missing name", line: "aggiungi_amico", want: protocol.NoUsernameFailure},
		{name: "self friend", line: "aggiungi_amico:anna", want: protocol.SelfFriendFailure},
		{name: "unknown user", line: "aggiungi_amico:nobody", want: protocol.UserNotExistsFailure("nobody")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addUser(t, "anna", "secret")
			session, conn := f.login(t, "anna", "secret")

			session.Dispatch(tt.line)
			assert.Equal(t, tt.want, conn.last())
		})
	}
}

func TestSession_AddFriendTwice(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "anna", "secret")
	f.addUser(t, "marco", "secret")
	session, conn := f.login(t, "anna", "secret")

	session.Dispatch("aggiungi_amico:marco")
	session.Dispatch("aggiungi_amico:marco")
	assert.Equal(t, protocol.AlreadyFriendsFailure("marco"), conn.last())
}

func TestSession_Challenge(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "anna", "secret")
	marco := f.addUser(t, "marco", "secret")
	session, conn := f.login(t, "anna", "secret")

	// Not friends yet.
	session.Dispatch("sfida:marco")
	assert.Equal(t, protocol.NotFriendsFailure("marco"), conn.last())

	session.Dispatch("aggiungi_amico:marco")

	// Marco is offline.
	session.Dispatch("sfida:marco")
	assert.Equal(t, protocol.NotIdleFailure("marco"), conn.last())

	require.True(t, marco.Bind(&fakeConn{}, 4001))
	session.Dispatch("sfida:marco")
	assert.Equal(t, protocol.WaitingResponse, conn.last())
	assert.Equal(t, [][2]string{{"anna", "marco"}}, f.engine.issued)
}

func TestSession_ChallengeTargetBusy(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "anna", "secret")
	marco := f.addUser(t, "marco", "secret")
	session, conn := f.login(t, "anna", "secret")
	session.Dispatch("aggiungi_amico:marco")
	require.True(t, marco.Bind(&fakeConn{}, 4001))

	f.engine.err = game.ErrTargetBusy
	session.Dispatch("sfida:marco")
	assert.Equal(t, protocol.NotIdleFailure("marco"), conn.last())
}

func TestSession_AcceptRejectAndWords(t *testing.T) {
	f := newFixture(t)
	anna := f.addUser(t, "anna", "secret")
	session, conn := f.login(t, "anna", "secret")

	// yes outside of a challenge is invalid.
	session.Dispatch("yes")
	assert.Equal(t, protocol.InvalidCommand, conn.last())

	challenge := &stubChallenge{}
	require.True(t, anna.EnterChallenge(challenge, player.StateChallenged))
	session.Dispatch("yes")
	assert.True(t, challenge.accepted)

	// Simulate the match starting.
	anna.SetState(player.StateInGame)
	session.Dispatch("word:guinea:pig")
	assert.Equal(t, []string{"guinea:pig"}, challenge.words)

	session.Dispatch("cancel")
	assert.Equal(t, "anna", challenge.abortedBy)
	assert.Equal(t, player.StateIdle, anna.State())
}

func TestSession_RejectChallenge(t *testing.T) {
	f := newFixture(t)
	anna := f.addUser(t, "anna", "secret")
	session, _ := f.login(t, "anna", "secret")

	challenge := &stubChallenge{}
	require.True(t, anna.EnterChallenge(challenge, player.StateChallenged))
	session.Dispatch("no")
	assert.Equal(t, "anna", challenge.abortedBy)
}

func TestSession_CloseWindowCancels(t *testing.T) {
	f := newFixture(t)
	anna := f.addUser(t, "anna", "secret")
	session, conn := f.login(t, "anna", "secret")

	// A challenged user dismisses the invitation with no, not close.
	challenge := &stubChallenge{}
	require.True(t, anna.EnterChallenge(challenge, player.StateChallenged))
	session.Dispatch("close")
	assert.Equal(t, protocol.InvalidCommand, conn.last())
	assert.Empty(t, challenge.abortedBy)

	// The issuer closing the challenge window withdraws the invitation.
	anna.SetState(player.StateChallengeIssued)
	session.Dispatch("close")
	assert.Equal(t, "anna", challenge.abortedBy)
	assert.Equal(t, player.StateIdle, anna.State())

	// Closing the window mid-match forfeits, same as cancel.
	match := &stubChallenge{}
	require.True(t, anna.EnterChallenge(match, player.StateInGame))
	session.Dispatch("close")
	assert.Equal(t, "anna", match.abortedBy)
}

func TestSession_ClosedAbortsChallenge(t *testing.T) {
	f := newFixture(t)
	anna := f.addUser(t, "anna", "secret")
	session, _ := f.login(t, "anna", "secret")

	challenge := &stubChallenge{}
	require.True(t, anna.EnterChallenge(challenge, player.StateInGame))

	session.Closed()
	assert.Equal(t, "anna", challenge.abortedBy)
	assert.Equal(t, player.StateOffline, anna.State())
}

type panickyEngine struct{}

func (panickyEngine) Issue(_, _ *player.User) error { panic("boom") }

func TestSession_PanicBecomesInternalFailure(t *testing.T) {
	f := newFixture(t)
	f.deps.Engine = panickyEngine{}
	f.addUser(t, "anna", "secret")
	marco := f.addUser(t, "marco", "secret")
	session, conn := f.login(t, "anna", "secret")
	session.Dispatch("aggiungi_amico:marco")
	require.True(t, marco.Bind(&fakeConn{}, 4001))

	session.Dispatch("sfida:marco")
	assert.Equal(t, protocol.InternalFailure, conn.last())
}
