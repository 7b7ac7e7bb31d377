package player

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/protocol"
)

var (
	ErrUserExists     = errors.New("a user with that username already exists")
	ErrUnknownUser    = errors.New("no user with that username exists")
	ErrSelfFriend     = errors.New("users cannot befriend themselves")
	ErrAlreadyFriends = errors.New("the users are already friends")
)

// Snapshot is the persisted form of a user as loaded from (or written to)
// the backing store.
type Snapshot struct {
	Name         string
	PasswordHash string
	Score        int
	Friends      []string
}

// Store is the persistence collaborator behind the registry. Implementations
// must be safe for concurrent use; the registry writes through on every
// score or friendship change.
type Store interface {
	LoadAll() ([]Snapshot, error)
	CreateUser(name, passwordHash string) error
	SaveScore(name string, score int) error
	SaveFriendship(a, b string) error
}

// Registry is the shared directory of every user known to the server. It is
// constructed once at startup and passed to the components that need it; no
// package-level instance exists.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
	store Store
	log   *logrus.Logger
}

func NewRegistry(store Store, log *logrus.Logger) *Registry {
	return &Registry{
		users: make(map[string]*User),
		store: store,
		log:   log,
	}
}

// Load populates the registry from the store, linking up friend references
// in a second pass once every user object exists.
func (r *Registry) Load() (int, error) {
	snapshots, err := r.store.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("loading users: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, snap := range snapshots {
		r.users[snap.Name] = r.newUser(snap.Name, snap.PasswordHash, snap.Score)
	}
	for _, snap := range snapshots {
		user := r.users[snap.Name]
		for _, name := range snap.Friends {
			friend, ok := r.users[name]
			if !ok {
				r.log.Warnf("user %s references unknown friend %s; skipping", snap.Name, name)
				continue
			}
			user.friends[name] = friend
		}
	}
	return len(r.users), nil
}

func (r *Registry) newUser(name, passwordHash string, score int) *User {
	return &User{
		name:         name,
		passwordHash: passwordHash,
		score:        score,
		state:        StateOffline,
		friends:      make(map[string]*User),
		store:        r.store,
		log:          r.log.WithField("user", name),
	}
}

// Lookup returns the live handle for a username.
func (r *Registry) Lookup(name string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[name]
	return user, ok
}

// Register creates a new account with the given (already hashed) password
// and persists it.
func (r *Registry) Register(name, passwordHash string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[name]; ok {
		return nil, ErrUserExists
	}
	if err := r.store.CreateUser(name, passwordHash); err != nil {
		return nil, fmt.Errorf("persisting user %s: %w", name, err)
	}
	user := r.newUser(name, passwordHash, 0)
	r.users[name] = user
	r.log.Infof("registered user %s", name)
	return user, nil
}

// AddFriendship makes the user and the named target friends of each other.
// Friendship is symmetric: both friend sets are updated and persisted as one
// operation. The two user guards are taken in lexicographic name order so
// that concurrent AddFriendship calls cannot deadlock.
func (r *Registry) AddFriendship(user *User, name string) error {
	if user.Name() == name {
		return ErrSelfFriend
	}
	friend, ok := r.Lookup(name)
	if !ok {
		return ErrUnknownUser
	}

	first, second := user, friend
	if first.Name() > second.Name() {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if _, ok := user.friends[friend.name]; ok {
		return ErrAlreadyFriends
	}
	user.friends[friend.name] = friend
	friend.friends[user.name] = user
	if err := r.store.SaveFriendship(user.name, friend.name); err != nil {
		r.log.Errorf("failed to persist friendship %s/%s: %v", user.name, friend.name, err)
	}
	return nil
}

// Leaderboard returns the user's score plus those of all their friends,
// ordered by descending score with ties broken by name.
func (r *Registry) Leaderboard(user *User) []protocol.ScoreEntry {
	entries := []protocol.ScoreEntry{{Name: user.Name(), Score: user.Score()}}
	for _, friend := range user.Friends() {
		entries = append(entries, protocol.ScoreEntry{Name: friend.Name(), Score: friend.Score()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}
