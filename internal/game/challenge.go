package game

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/player"
	"github.com/quizzleteam/quizd/internal/protocol"
)

// Points awarded per answer during a match.
const (
	correctPoints = 2
	wrongPenalty  = 1
)

// Word is one quiz entry: the word shown to the players and the set of
// translations accepted as correct answers, already normalized.
type Word struct {
	Text         string
	Translations []string
}

type challengeState int

const (
	statePending challengeState = iota
	stateActive
	stateFinished
	stateAborted
)

// progress tracks one player's advance through the word list.
type progress struct {
	startingScore int
	correct       int
	wrong         int
	answered      int
}

// Challenge is a single match between two users. It is created in a
// pending state when the challenge is issued and becomes active once the
// target accepts. All transitions are guarded by mu; user methods are only
// ever called while mu is held, never the other way around.
type Challenge struct {
	id         string
	cfg        Config
	translator Translator
	log        *logrus.Entry

	issuer *player.User
	target *player.User

	mu          sync.Mutex
	state       challengeState
	wordTexts   []string
	words       []Word
	progress    map[*player.User]*progress
	acceptTimer *time.Timer
	matchTimer  *time.Timer
}

func (c *Challenge) ID() string { return c.id }

func (c *Challenge) players() [2]*player.User {
	return [2]*player.User{c.issuer, c.target}
}

// Accept transitions the challenge to active, moves both players to
// IN_GAME, and kicks off the match setup in the background. Acceptance
// after the timeout has already fired is a no-op.
func (c *Challenge) Accept() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != statePending {
		return
	}
	c.state = stateActive
	if c.acceptTimer != nil {
		c.acceptTimer.Stop()
	}

	c.progress = make(map[*player.User]*progress)
	for _, u := range c.players() {
		c.progress[u] = &progress{startingScore: u.Score()}
		u.SetState(player.StateInGame)
		u.Send(protocol.BeginChallenge)
	}

	go c.setUp()
}

// setUp resolves the translations for the selected words and then starts
// the match clock and deals the first word to both players. It runs off
// the reactor goroutines because the translation lookups hit the network.
func (c *Challenge) setUp() {
	words := make([]Word, 0, len(c.wordTexts))
	for _, text := range c.wordTexts {
		translations, err := c.translator.Translate(text)
		if err != nil {
			c.fail(err)
			return
		}
		words = append(words, Word{Text: text, Translations: translations})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The challenge may have been aborted while the lookups were in flight.
	if c.state != stateActive {
		return
	}

	c.words = words
	c.matchTimer = time.AfterFunc(c.cfg.MatchTimeout, c.matchTimeout)
	for _, u := range c.players() {
		u.Send(protocol.SendWord(1, len(words), words[0].Text))
	}
}

// fail aborts an active challenge because the match could not be set up.
func (c *Challenge) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateActive {
		return
	}
	c.state = stateAborted
	c.log.Errorf("aborting challenge %s: %v", c.id, err)

	for _, u := range c.players() {
		u.Send(protocol.InternalFailure)
		u.LeaveChallenge()
	}
}

// SubmitWord scores one answer from u and deals them their next word.
// Submissions outside an active match, or after the player has exhausted
// the word list, do not affect any score.
func (c *Challenge) SubmitWord(u *player.User, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateActive || c.words == nil {
		return
	}
	p := c.progress[u]
	if p == nil {
		return
	}
	if p.answered >= len(c.words) {
		u.Send(protocol.GameFinished)
		return
	}

	word := c.words[p.answered]
	if matchesTranslation(word.Translations, answer) {
		p.correct++
		u.AdjustScore(correctPoints)
	} else {
		p.wrong++
		u.AdjustScore(-wrongPenalty)
	}
	p.answered++

	if p.answered < len(c.words) {
		u.Send(protocol.SendWord(p.answered+1, len(c.words), c.words[p.answered].Text))
		return
	}

	u.Send(protocol.GameFinished)
	if c.bothFinishedLocked() {
		c.concludeLocked()
	}
}

func matchesTranslation(translations []string, answer string) bool {
	normalized := Normalize(answer)
	for _, t := range translations {
		if t == normalized {
			return true
		}
	}
	return false
}

func (c *Challenge) bothFinishedLocked() bool {
	for _, u := range c.players() {
		if c.progress[u].answered < len(c.words) {
			return false
		}
	}
	return true
}

// concludeLocked finishes the match: both players get their result, the
// strict winner (if any) collects the bonus, and both return to IDLE.
func (c *Challenge) concludeLocked() {
	c.state = stateFinished
	if c.matchTimer != nil {
		c.matchTimer.Stop()
	}

	for _, u := range c.players() {
		p := c.progress[u]
		u.Send(protocol.GameResult(p.correct, p.wrong, u.Score()-p.startingScore))
	}

	if winner := c.winnerLocked(); winner != nil {
		winner.AdjustScore(c.cfg.WinnerBonus)
		winner.Send(protocol.Winner(c.cfg.WinnerBonus, winner.Score()))
	}

	for _, u := range c.players() {
		u.LeaveChallenge()
	}
}

// winnerLocked returns the player with strictly more correct answers, or
// nil on a tie.
func (c *Challenge) winnerLocked() *player.User {
	issuerCorrect := c.progress[c.issuer].correct
	targetCorrect := c.progress[c.target].correct
	switch {
	case issuerCorrect > targetCorrect:
		return c.issuer
	case targetCorrect > issuerCorrect:
		return c.target
	default:
		return nil
	}
}

// AbortBy cancels the challenge on behalf of quitter: a rejected or
// cancelled invitation, a mid-match quit, or a disconnect. The opponent is
// told who walked away. Already-settled challenges are left alone.
func (c *Challenge) AbortBy(quitter *player.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateFinished || c.state == stateAborted {
		return
	}
	c.state = stateAborted
	if c.acceptTimer != nil {
		c.acceptTimer.Stop()
	}
	if c.matchTimer != nil {
		c.matchTimer.Stop()
	}

	for _, u := range c.players() {
		if u != quitter {
			u.Send(protocol.QuitChallenge(quitter.Name()))
		}
		u.LeaveChallenge()
	}
}

// acceptanceTimeout fires when the target lets the invitation lapse. A
// stale timer that lost the race against Accept does nothing.
func (c *Challenge) acceptanceTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != statePending {
		return
	}
	c.state = stateAborted

	for _, u := range c.players() {
		u.Send(protocol.GameTimedOut)
		u.LeaveChallenge()
	}
}

// matchTimeout concludes the match with whatever answers are in. Players
// who never reached the end of the word list simply score what they have.
func (c *Challenge) matchTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateActive {
		return
	}
	c.concludeLocked()
}
