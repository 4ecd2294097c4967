package port

import (
	"net"
	"strconv"
)

// maxPort is the highest valid TCP port number (2^16 - 1).
const maxPort = 65535

// Scanner checks whether ports can be bound on a given host.
//
// It is stateless; it exists as a struct so it can be swapped for a test
// double through the Prober interface.
type Scanner struct{}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable reports whether a TCP listener can be bound on
// host:port right now. An empty host probes all interfaces.
//
// Binding is the only reliable test: a port with no listener may still be
// unbindable (for example when another process holds it on a different
// interface that overlaps host), and connecting to it would not reveal that.
// The probe listener is closed before returning, which frees the port for
// the dev server.
func (s *Scanner) IsPortAvailable(host string, port int) bool {
	// Port 0 asks the OS for an ephemeral port and would always succeed,
	// so it is never "available" in the sense callers mean.
	if port < 1 || port > maxPort {
		return false
	}

	// net.JoinHostPort brackets IPv6 literals such as "::1".
	listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	defer func() { _ = listener.Close() }()
	return true
}
