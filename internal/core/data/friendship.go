package data

import "gorm.io/gorm"

// Friendship records one symmetric friend relation. Rows are stored with
// the lexicographically smaller username in UserA so that each pair appears
// exactly once.
type Friendship struct {
	ID    uint64 `gorm:"primaryKey"`
	UserA string `gorm:"uniqueIndex:idx_friendship_pair; not null"`
	UserB string `gorm:"uniqueIndex:idx_friendship_pair; not null"`
}

// CreateFriendship persists a friendship between the two usernames.
func CreateFriendship(db *gorm.DB, a, b string) error {
	if a > b {
		a, b = b, a
	}
	return db.Create(&Friendship{UserA: a, UserB: b}).Error
}

// ListFriendships returns every persisted friendship pair.
func ListFriendships(db *gorm.DB) ([]Friendship, error) {
	var friendships []Friendship
	if err := db.Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}
