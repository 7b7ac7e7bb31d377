package player

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// fakeStore records write-through calls and can seed LoadAll snapshots.
type fakeStore struct {
	mu          sync.Mutex
	snapshots   []Snapshot
	created     []string
	scores      map[string]int
	friendships [][2]string
}

func newFakeStore(snapshots ...Snapshot) *fakeStore {
	return &fakeStore{snapshots: snapshots, scores: make(map[string]int)}
}

func (s *fakeStore) LoadAll() ([]Snapshot, error) { return s.snapshots, nil }

func (s *fakeStore) CreateUser(name, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, name)
	return nil
}

func (s *fakeStore) SaveScore(name string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[name] = score
	return nil
}

func (s *fakeStore) SaveFriendship(a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friendships = append(s.friendships, [2]string{a, b})
	return nil
}

// fakeConn captures everything submitted to it.
type fakeConn struct {
	mu   sync.Mutex
	sent []string
}

func (c *fakeConn) Submit(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
}

func (c *fakeConn) RemoteIP() string { return "127.0.0.1" }

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRegistry_Load(t *testing.T) {
	store := newFakeStore(
		Snapshot{Name: "anna", PasswordHash: "x", Score: 5, Friends: []string{"marco"}},
		Snapshot{Name: "marco", PasswordHash: "y", Score: 2, Friends: []string{"anna"}},
	)
	registry := NewRegistry(store, testLogger())

	n, err := registry.Load()
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("Load() = %d users, want 2", n)
	}

	anna, ok := registry.Lookup("anna")
	if !ok {
		t.Fatal("expected anna to be registered")
	}
	if !anna.IsFriend("marco") {
		t.Error("expected anna to be friends with marco after load")
	}
	if anna.Score() != 5 {
		t.Errorf("anna score = %d, want 5", anna.Score())
	}
}

func TestRegistry_Register(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry(store, testLogger())

	if _, err := registry.Register("anna", "hash"); err != nil {
		t.Fatalf("Register() returned an unexpected error: %v", err)
	}
	if _, err := registry.Register("anna", "hash"); err != ErrUserExists {
		t.Errorf("Register() duplicate error = %v, want ErrUserExists", err)
	}
	if len(store.created) != 1 || store.created[0] != "anna" {
		t.Errorf("store.created = %v, want [anna]", store.created)
	}
}

func TestRegistry_AddFriendship(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		preFriend bool
		wantErr   error
	}{
		{name: "happy path", target: "marco", wantErr: nil},
		{name: "self friending", target: "anna", wantErr: ErrSelfFriend},
		{name: "unknown user", target: "ghost", wantErr: ErrUnknownUser},
		{name: "already friends", target: "marco", preFriend: true, wantErr: ErrAlreadyFriends},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			registry := NewRegistry(store, testLogger())
			anna, _ := registry.Register("anna", "h")
			registry.Register("marco", "h")

			if tt.preFriend {
				if err := registry.AddFriendship(anna, "marco"); err != nil {
					t.Fatalf("seeding friendship failed: %v", err)
				}
			}

			err := registry.AddFriendship(anna, tt.target)
			if err != tt.wantErr {
				t.Fatalf("AddFriendship() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			// Friendship must be symmetric and written through.
			marco, _ := registry.Lookup("marco")
			if !anna.IsFriend("marco") || !marco.IsFriend("anna") {
				t.Error("expected friendship to be recorded on both users")
			}
			if len(store.friendships) != 1 {
				t.Errorf("store recorded %d friendships, want 1", len(store.friendships))
			}
		})
	}
}

func TestRegistry_Leaderboard(t *testing.T) {
	store := newFakeStore(
		Snapshot{Name: "anna", Score: 4, Friends: []string{"marco", "luca"}},
		Snapshot{Name: "marco", Score: 11, Friends: []string{"anna"}},
		Snapshot{Name: "luca", Score: 11, Friends: []string{"anna"}},
		Snapshot{Name: "nonfriend", Score: 99},
	)
	registry := NewRegistry(store, testLogger())
	if _, err := registry.Load(); err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	anna, _ := registry.Lookup("anna")

	entries := registry.Leaderboard(anna)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	// Descending score, ties by name; non-friends excluded.
	want := []string{"luca", "marco", "anna"}
	if len(got) != len(want) {
		t.Fatalf("Leaderboard() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Leaderboard() = %v, want %v", got, want)
		}
	}
}

func TestUser_Bind(t *testing.T) {
	registry := NewRegistry(newFakeStore(), testLogger())
	anna, _ := registry.Register("anna", "h")

	first := &fakeConn{}
	if !anna.Bind(first, 40000) {
		t.Fatal("expected first Bind to succeed")
	}
	if anna.State() != StateIdle {
		t.Errorf("state after bind = %v, want IDLE", anna.State())
	}
	if got := first.messages(); len(got) != 1 || got[0] != "SET_STATE:IDLE" {
		t.Errorf("bind notifications = %v, want [SET_STATE:IDLE]", got)
	}

	// A user can be bound to at most one connection at a time.
	second := &fakeConn{}
	if anna.Bind(second, 40001) {
		t.Fatal("expected second Bind to fail while already online")
	}

	anna.Logout()
	if anna.State() != StateOffline {
		t.Errorf("state after logout = %v, want OFFLINE", anna.State())
	}
	if !anna.Bind(second, 40001) {
		t.Fatal("expected Bind to succeed after logout")
	}
}

func TestUser_AdjustScore(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry(store, testLogger())
	anna, _ := registry.Register("anna", "h")

	anna.AdjustScore(2)
	anna.AdjustScore(2)
	anna.AdjustScore(-1)
	if anna.Score() != 3 {
		t.Errorf("score = %d, want 3", anna.Score())
	}
	// Every change is written through.
	if store.scores["anna"] != 3 {
		t.Errorf("persisted score = %d, want 3", store.scores["anna"])
	}

	// No floor: scores may go negative.
	anna.AdjustScore(-10)
	if anna.Score() != -7 {
		t.Errorf("score = %d, want -7", anna.Score())
	}
}

func TestUser_EnterChallenge(t *testing.T) {
	registry := NewRegistry(newFakeStore(), testLogger())
	anna, _ := registry.Register("anna", "h")
	conn := &fakeConn{}
	anna.Bind(conn, 0)

	ch := &stubChallenge{}
	if !anna.EnterChallenge(ch, StateChallenged) {
		t.Fatal("expected EnterChallenge to succeed while IDLE")
	}
	if anna.Challenge() != Challenge(ch) {
		t.Error("expected challenge reference to be set")
	}

	// At most one challenge may reference a user at a time.
	if anna.EnterChallenge(&stubChallenge{}, StateChallenged) {
		t.Fatal("expected EnterChallenge to fail while already challenged")
	}

	anna.LeaveChallenge()
	if anna.Challenge() != nil {
		t.Error("expected challenge reference to be cleared")
	}
	if anna.State() != StateIdle {
		t.Errorf("state after LeaveChallenge = %v, want IDLE", anna.State())
	}
}

func TestUser_LeaveChallengeAfterLogout(t *testing.T) {
	registry := NewRegistry(newFakeStore(), testLogger())
	anna, _ := registry.Register("anna", "h")
	anna.Bind(&fakeConn{}, 0)
	anna.EnterChallenge(&stubChallenge{}, StateInGame)

	anna.Logout()
	anna.LeaveChallenge()
	if anna.State() != StateOffline {
		t.Errorf("state = %v, want OFFLINE (LeaveChallenge must not resurrect a logged-out user)", anna.State())
	}
}

type stubChallenge struct{}

func (s *stubChallenge) ID() string                        { return "stub" }
func (s *stubChallenge) Accept()                           {}
func (s *stubChallenge) AbortBy(*User)                     {}
func (s *stubChallenge) SubmitWord(u *User, answer string) {}
