package notify

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestUDPNotifier_ChallengeFrom(t *testing.T) {
	socket, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("error opening UDP socket: %v", err)
	}
	defer socket.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	notifier := &UDPNotifier{Logger: logger}

	port := socket.LocalAddr().(*net.UDPAddr).Port
	notifier.ChallengeFrom("127.0.0.1", port, "anna")

	_ = socket.SetReadDeadline(time.Now().Add(2 * time.Second))
	buffer := make([]byte, 256)
	n, _, err := socket.ReadFromUDP(buffer)
	if err != nil {
		t.Fatalf("error reading notification: %v", err)
	}
	if got := string(buffer[:n]); got != "CHALLENGE_FROM:anna" {
		t.Errorf("notification = %q, want %q", got, "CHALLENGE_FROM:anna")
	}
}

func TestUDPNotifier_MissingEndpoint(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	notifier := &UDPNotifier{Logger: logger}

	// Nothing to assert beyond not panicking.
	notifier.ChallengeFrom("", 0, "anna")
	notifier.ChallengeFrom("127.0.0.1", 0, "anna")
}
