// Package notify delivers out-of-band notifications to clients over UDP.
// Clients listen on a port they announce at login so that a challenge
// invitation can reach them even while their TCP line is quiet.
package notify

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/quizzleteam/quizd/internal/protocol"
)

// UDPNotifier sends single-datagram notifications. Delivery is
// fire-and-forget: UDP gives no acknowledgement and a lost invitation
// simply times out on the server side.
type UDPNotifier struct {
	Logger *logrus.Logger
}

// ChallengeFrom tells the client listening at ip:udpPort that challenger
// has invited them to a match.
func (n *UDPNotifier) ChallengeFrom(ip string, udpPort int, challenger string) {
	if ip == "" || udpPort == 0 {
		n.Logger.Debugf("no UDP endpoint for challenge notification from %s", challenger)
		return
	}

	addr := fmt.Sprintf("%s:%d", ip, udpPort)
	conn, err := net.Dial("udp", addr)
	if err != nil {
		n.Logger.Debugf("failed to dial %s for challenge notification: %s", addr, err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(protocol.ChallengeFrom(challenger))); err != nil {
		n.Logger.Debugf("failed to send challenge notification to %s: %s", addr, err)
	}
}
