// Package protocol defines the line-oriented wire protocol spoken between
// the server and the WordQuizzle clients. Messages are UTF-8, one per line,
// with colon-separated fields where the first token is the command or
// response code.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Commands a client can send, keyed off of the first token of each line.
const (
	CmdLogin       = "login"
	CmdRegister    = "register"
	CmdLogout      = "logout"
	CmdFriendList  = "lista_amici"
	CmdLeaderboard = "mostra_classifica"
	CmdScore       = "mostra_punteggio"
	CmdAddFriend   = "aggiungi_amico"
	CmdChallenge   = "sfida"
	CmdAccept      = "yes"
	CmdReject      = "no"
	CmdCancel      = "cancel"
	// Sent by the graphical client when its challenge window is closed;
	// treated the same as an explicit cancel.
	CmdCloseWindow = "close"
	CmdWord        = "word"
)

// Response codes without parameters.
const (
	LoginFailure           = "LOGIN_FAILURE"
	NoUserPassFailure      = "NOUSERPASS_FAILURE"
	NoUsernameFailure      = "NOUSERNAME_FAILURE"
	SelfFriendFailure      = "SELFFRIEND_FAILURE"
	RegistrationSuccess    = "REGISTRATION_SUCCESS"
	UsernameInvalidFailure = "USERNAMEINVALID_FAILURE"
	PasswordInvalidFailure = "PASSWORDINVALID_FAILURE"
	WaitingResponse        = "WAITING_RESPONSE"
	BeginChallenge         = "BEGIN_CHALLENGE"
	GameFinished           = "GAME_FINISHED"
	GameTimedOut           = "GAME_TIMEDOUT"
	InvalidCommand         = "INVALID_COMMAND"
	InternalFailure        = "INTERNAL_FAILURE"
)

// Parse splits a line into its command token and any colon-separated
// arguments. The arguments slice is empty (not nil) for bare commands.
func Parse(line string) (string, []string) {
	fields := strings.Split(line, ":")
	return fields[0], fields[1:]
}

func LoginSuccess(name string) string {
	return "LOGIN_SUCCESS:" + name
}

func AlreadyLoggedInFailure(name string) string {
	return "ALREADYLOGGEDIN_FAILURE:" + name
}

func UserNotExistsFailure(name string) string {
	return "USERNOTEXISTS_FAILURE:" + name
}

func UsernameExistsFailure(name string) string {
	return "USERNAMEEXISTS_FAILURE:" + name
}

func AlreadyFriendsFailure(name string) string {
	return "ALREADYFRIENDS_FAILURE:" + name
}

func NotFriendsFailure(name string) string {
	return "NOTFRIENDS_FAILURE:" + name
}

func NotIdleFailure(name string) string {
	return "NOTIDLE_FAILURE:" + name
}

func AddFriendSuccess(a, b string) string {
	return fmt.Sprintf("ADDFRIEND_SUCCESS:%s:%s", a, b)
}

func SetState(state string) string {
	return "SET_STATE:" + state
}

// ChallengeFrom is the out-of-band notification delivered over UDP to a
// challenged user.
func ChallengeFrom(challenger string) string {
	return "CHALLENGE_FROM:" + challenger
}

func SendWord(idx, total int, word string) string {
	return fmt.Sprintf("SEND_WORD:%d:%d:%s", idx, total, word)
}

func GameResult(correct, wrong, delta int) string {
	return fmt.Sprintf("GAME_RESULT:%d:%d:%d", correct, wrong, delta)
}

func Winner(bonus, total int) string {
	return fmt.Sprintf("WINNER:%d:%d", bonus, total)
}

func QuitChallenge(name string) string {
	return "QUIT_CHALLENGE:" + name
}

func Score(score int) string {
	return fmt.Sprintf("SCORE:%d", score)
}

func Logout(name string) string {
	return "Bye " + name
}

// FriendList serializes the friend list payload as a compact JSON array
// of usernames.
func FriendList(names []string) string {
	if names == nil {
		names = []string{}
	}
	payload, _ := json.Marshal(names)
	return "FRIENDLIST:" + string(payload)
}

// ScoreEntry is one row of a leaderboard payload.
type ScoreEntry struct {
	Name  string
	Score int
}

// Leaderboard serializes the entries as a compact JSON object in the order
// given. The object is built by hand because encoding/json does not preserve
// map ordering and clients display the entries in ranking order.
func Leaderboard(entries []ScoreEntry) string {
	var b strings.Builder
	b.WriteString("LEADERBOARD:{")
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		name, _ := json.Marshal(entry.Name)
		b.Write(name)
		fmt.Fprintf(&b, ":%d", entry.Score)
	}
	b.WriteByte('}')
	return b.String()
}
