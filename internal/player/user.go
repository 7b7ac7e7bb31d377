// Package player holds the in-memory representation of the users known to
// the server: their protocol state, score, friend set, and the runtime
// binding to a connection while they are logged in. Score and friendship
// mutations are written through to the backing store immediately so that a
// crash loses nothing already acknowledged to the client.
package player

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/core"
	"github.com/quizzleteam/quizd/internal/protocol"
)

// Conn is the outbound half of a client connection. Implemented by
// network.Conn; Submit must be safe to call from any goroutine.
type Conn interface {
	Submit(msg string)
	RemoteIP() string
}

// Challenge is the handle a User keeps on its active match. Implemented by
// game.Challenge; declared here so that the session layer can drive a
// challenge through the user without this package importing the engine.
type Challenge interface {
	ID() string
	Accept()
	AbortBy(quitter *User)
	SubmitWord(u *User, answer string)
}

// User is one registered account's live state. All mutable fields are
// guarded by mu; see DESIGN.md for the Challenge-before-User lock order.
type User struct {
	name         string
	passwordHash string

	mu        sync.Mutex
	score     int
	state     State
	friends   map[string]*User
	challenge Challenge
	conn      Conn
	udpPort   int

	store Store
	log   *logrus.Entry
}

func (u *User) Name() string { return u.name }

// CheckPassword reports whether the supplied plaintext password matches the
// account's stored hash.
func (u *User) CheckPassword(password string) bool {
	return core.VerifyPassword(u.passwordHash, password)
}

func (u *User) Score() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.score
}

func (u *User) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// AdjustScore applies a signed delta to the user's cumulative score and
// writes the new value through to the store. No floor is enforced; a score
// may go negative.
func (u *User) AdjustScore(delta int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.score += delta
	if err := u.store.SaveScore(u.name, u.score); err != nil {
		u.log.Errorf("failed to persist score for %s: %v", u.name, err)
	}
}

// Friends returns a snapshot of the user's friend set.
func (u *User) Friends() []*User {
	u.mu.Lock()
	defer u.mu.Unlock()
	friends := make([]*User, 0, len(u.friends))
	for _, friend := range u.friends {
		friends = append(friends, friend)
	}
	return friends
}

func (u *User) IsFriend(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.friends[name]
	return ok
}

// Bind attaches a connection to the user and moves them to IDLE, reporting
// whether the binding succeeded. It fails if the user is already bound
// elsewhere, which is how a second concurrent login is rejected.
func (u *User) Bind(conn Conn, udpPort int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateOffline {
		return false
	}
	u.conn = conn
	u.udpPort = udpPort
	u.setStateLocked(StateIdle)
	return true
}

// Logout reverts the user to OFFLINE after notifying the client, and clears
// the connection binding and any challenge reference. The caller is
// responsible for aborting an active challenge first.
func (u *User) Logout() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setStateLocked(StateOffline)
	u.challenge = nil
	u.conn = nil
	u.udpPort = 0
}

// Drop is Logout without the state notification, used when the connection
// is already gone.
func (u *User) Drop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.conn = nil
	u.state = StateOffline
	u.challenge = nil
	u.udpPort = 0
}

// SetState transitions the user and pushes a SET_STATE notification to the
// bound connection, if any.
func (u *User) SetState(state State) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setStateLocked(state)
}

func (u *User) setStateLocked(state State) {
	u.state = state
	if u.conn != nil {
		u.conn.Submit(protocol.SetState(state.String()))
	}
}

// EnterChallenge atomically binds the user to a challenge and transitions
// them to the given state, but only if they are currently IDLE. This is the
// check that guarantees at most one challenge references a user at a time.
func (u *User) EnterChallenge(ch Challenge, state State) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateIdle {
		return false
	}
	u.challenge = ch
	u.setStateLocked(state)
	return true
}

// LeaveChallenge clears the challenge reference and reverts the user to
// IDLE. Users who already logged out stay OFFLINE.
func (u *User) LeaveChallenge() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.challenge = nil
	if u.state != StateOffline {
		u.setStateLocked(StateIdle)
	}
}

func (u *User) Challenge() Challenge {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.challenge
}

// Send queues a message on the user's bound connection. Messages to an
// unbound user are dropped; a user who disconnected mid-match is not an
// error the engine needs to care about.
func (u *User) Send(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn != nil {
		u.conn.Submit(msg)
	}
}

// RemoteIP returns the IP address of the user's bound connection, or ""
// when the user is not online. Used for out-of-band UDP notifications.
func (u *User) RemoteIP() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return ""
	}
	return u.conn.RemoteIP()
}

func (u *User) UDPPort() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.udpPort
}
