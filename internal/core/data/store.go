package data

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quizzleteam/quizd/internal/player"
)

// Store adapts the database to the player.Store interface used by the
// in-memory user registry for write-through persistence.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadAll reads every account and friendship into registry snapshots.
// Friendships are stored once per pair but reported in both directions.
func (s *Store) LoadAll() ([]player.Snapshot, error) {
	accounts, err := ListAccounts(s.db)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	friendships, err := ListFriendships(s.db)
	if err != nil {
		return nil, fmt.Errorf("listing friendships: %w", err)
	}

	friends := make(map[string][]string)
	for _, f := range friendships {
		friends[f.UserA] = append(friends[f.UserA], f.UserB)
		friends[f.UserB] = append(friends[f.UserB], f.UserA)
	}

	snapshots := make([]player.Snapshot, 0, len(accounts))
	for _, account := range accounts {
		snapshots = append(snapshots, player.Snapshot{
			Name:         account.Username,
			PasswordHash: account.Password,
			Score:        account.Score,
			Friends:      friends[account.Username],
		})
	}
	return snapshots, nil
}

func (s *Store) CreateUser(name, passwordHash string) error {
	return CreateAccount(s.db, &Account{
		Username:         name,
		Password:         passwordHash,
		RegistrationDate: time.Now(),
	})
}

func (s *Store) SaveScore(name string, score int) error {
	return UpdateAccountScore(s.db, name, score)
}

func (s *Store) SaveFriendship(a, b string) error {
	return CreateFriendship(s.db, a, b)
}
