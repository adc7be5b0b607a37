package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// TelnetClient is a Telnet player used by integration tests. It keeps every
// byte received so assertions can inspect the whole session.
type TelnetClient struct {
	conn    net.Conn
	t       *testing.T
	session strings.Builder
}

// NewTelnetClient dials addr and returns a connected client that is closed
// when the test ends.
//
// Precondition: addr must be a "host:port" string with a listening server.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until output received since the last successful ReadUntil
// contains substr, and returns that output. The test fails on timeout.
//
// Precondition: substr must be non-empty.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var buf strings.Builder
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
			c.session.Write(tmp[:n])
			if strings.Contains(buf.String(), substr) {
				return buf.String()
			}
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, buf.String(), err)
		}
	}
}

// ReadAll reads until the server closes the connection or timeout passes.
func (c *TelnetClient) ReadAll(timeout time.Duration) string {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	var buf strings.Builder
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		buf.Write(tmp[:n])
		c.session.Write(tmp[:n])
		if err != nil {
			return buf.String()
		}
	}
}

// Session returns everything received so far.
func (c *TelnetClient) Session() string {
	return c.session.String()
}

// Send writes text followed by CRLF.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
