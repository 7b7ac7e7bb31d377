// Package game implements the challenge lifecycle: issuing invitations,
// running timed translation matches between two users, and settling the
// scores when a match ends.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/player"
)

// Config carries the tunable match parameters.
type Config struct {
	NumWords          int
	AcceptanceTimeout time.Duration
	MatchTimeout      time.Duration
	WinnerBonus       int
}

// Notifier delivers the out-of-band challenge notification to the target's
// client. Implemented by notify.UDPNotifier; delivery is best-effort.
type Notifier interface {
	ChallengeFrom(ip string, udpPort int, challenger string)
}

var (
	// ErrTargetBusy is returned when the challenged user is not idle.
	ErrTargetBusy = errors.New("challenged user is not available")
	// ErrIssuerBusy is returned when the issuer stopped being idle between
	// the session check and the challenge creation.
	ErrIssuerBusy = errors.New("issuing user is not available")
)

// Engine creates and wires up challenges between users.
type Engine struct {
	cfg        Config
	dictionary *Dictionary
	translator Translator
	notifier   Notifier
	logger     *logrus.Logger
}

func NewEngine(cfg Config, dictionary *Dictionary, translator Translator, notifier Notifier, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		dictionary: dictionary,
		translator: translator,
		notifier:   notifier,
		logger:     logger,
	}
}

// Issue creates a pending challenge from issuer to target, notifies the
// target out-of-band, and starts the acceptance clock. Both users must be
// idle. The issuer binds first: the target's reactor will honor a "yes" the
// moment the target is CHALLENGED, so by then both players must already
// hold the challenge reference.
func (e *Engine) Issue(issuer, target *player.User) error {
	wordTexts, err := e.dictionary.Sample(e.cfg.NumWords)
	if err != nil {
		return fmt.Errorf("error selecting challenge words: %w", err)
	}

	c := &Challenge{
		id:         uuid.New().String(),
		cfg:        e.cfg,
		translator: e.translator,
		issuer:     issuer,
		target:     target,
		wordTexts:  wordTexts,
	}
	c.log = e.logger.WithFields(logrus.Fields{
		"challenge": c.id,
		"issuer":    issuer.Name(),
		"target":    target.Name(),
	})

	if !issuer.EnterChallenge(c, player.StateChallengeIssued) {
		return ErrIssuerBusy
	}
	if !target.EnterChallenge(c, player.StateChallenged) {
		issuer.LeaveChallenge()
		return ErrTargetBusy
	}

	e.notifier.ChallengeFrom(target.RemoteIP(), target.UDPPort(), issuer.Name())

	c.mu.Lock()
	if c.state == statePending {
		c.acceptTimer = time.AfterFunc(e.cfg.AcceptanceTimeout, c.acceptanceTimeout)
	}
	c.mu.Unlock()

	c.log.Infof("challenge issued")
	return nil
}
