package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Account contains the persisted state of each registered user.
type Account struct {
	ID               uint64 `gorm:"primaryKey"`
	Username         string `gorm:"unique; not null"`
	Password         string `gorm:"not null"`
	Score            int    `gorm:"default:0"`
	RegistrationDate time.Time
}

// FindAccountByUsername searches for an account with the specified username,
// returning the *Account instance if found or nil if there is no match.
func FindAccountByUsername(db *gorm.DB, username string) (*Account, error) {
	var account Account
	err := db.Where("username = ?", username).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// ListAccounts returns every registered account.
func ListAccounts(db *gorm.DB) ([]Account, error) {
	var accounts []Account
	if err := db.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateAccount persists the Account record to the database.
func CreateAccount(db *gorm.DB, account *Account) error {
	return db.Create(account).Error
}

// UpdateAccountScore overwrites the stored score for the named account.
func UpdateAccountScore(db *gorm.DB, username string, score int) error {
	return db.Model(&Account{}).Where("username = ?", username).Update("score", score).Error
}

// DeleteAccount deletes an Account record and any friendships referencing it.
func DeleteAccount(db *gorm.DB, account *Account) error {
	if err := db.Where("user_a = ? OR user_b = ?", account.Username, account.Username).
		Delete(&Friendship{}).Error; err != nil {
		return err
	}
	return db.Delete(account).Error
}
