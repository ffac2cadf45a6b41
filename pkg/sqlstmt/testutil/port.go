package testutil

import (
	"net"
	"testing"
)

// GetFreePort asks the kernel for a free TCP port.
func GetFreePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to get a free port: %v", err)
	}

	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}
