// Package register implements account creation: username and password
// validation, hashing, and insertion into the user registry. The same
// service backs both the line-protocol register command and the HTTP
// registration endpoint.
package register

import (
	"errors"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/core"
	"github.com/quizzleteam/quizd/internal/player"
)

var (
	ErrInvalidUsername = errors.New("usernames must be non-empty and contain only word characters")
	ErrInvalidPassword = errors.New("passwords must be non-empty")
	// ErrUserExists mirrors player.ErrUserExists so that callers only need
	// this package's errors.
	ErrUserExists = player.ErrUserExists
)

var usernamePattern = regexp.MustCompile(`^\w+$`)

// Service validates and creates new accounts.
type Service struct {
	Registry *player.Registry
	Logger   *logrus.Logger
}

// Register creates an account for the username with the given plaintext
// password. The password is hashed before it goes anywhere near storage.
func (s *Service) Register(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	if password == "" {
		return ErrInvalidPassword
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return err
	}

	if _, err := s.Registry.Register(username, hash); err != nil {
		return err
	}
	return nil
}
