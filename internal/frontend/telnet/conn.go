package telnet

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Telnet command and option bytes (RFC 854, RFC 858).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	GA   byte = 249
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// iacState tracks where a byte stream is within a Telnet command.
type iacState uint8

const (
	stData      iacState = iota
	stCommand            // after IAC
	stOption             // after IAC WILL/WONT/DO/DONT
	stSub                // inside IAC SB ... IAC SE
	stSubEscape          // IAC seen inside a subnegotiation
)

// step advances the state by b and reports the data byte b carries, if any.
func (s *iacState) step(b byte) (byte, bool) {
	switch *s {
	case stCommand:
		switch b {
		case IAC:
			*s = stData
			return IAC, true
		case WILL, WONT, DO, DONT:
			*s = stOption
		case SB:
			*s = stSub
		default:
			*s = stData
		}
	case stOption:
		*s = stData
	case stSub:
		if b == IAC {
			*s = stSubEscape
		}
	case stSubEscape:
		if b == SE {
			*s = stData
		} else {
			*s = stSub
		}
	default:
		if b == IAC {
			*s = stCommand
			return 0, false
		}
		return b, true
	}
	return 0, false
}

// Conn is one player's Telnet connection. Writes are serialized so that
// screens drawn from different goroutines arrive whole.
type Conn struct {
	raw   net.Conn
	in    *bufio.Reader
	state iacState

	readTimeout  time.Duration
	writeTimeout time.Duration

	wmu sync.Mutex
}

var _ io.Writer = (*Conn)(nil)

// NewConn wraps raw. A zero timeout disables that deadline.
//
// Precondition: raw must be open.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		in:           bufio.NewReader(raw),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate offers to suppress go-ahead so the screen can be redrawn between
// input lines.
func (c *Conn) Negotiate() error {
	_, err := c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
	return err
}

// ReadLine returns the next line the player typed, without its CR, LF or
// CRLF terminator. Telnet commands and control characters other than tab are
// dropped.
//
// Postcondition: On error the text read so far is returned with it; io.EOF
// means the player hung up.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	var sb strings.Builder
	for {
		raw, err := c.in.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		b, ok := c.state.step(raw)
		if !ok {
			continue
		}
		switch {
		case b == '\n':
			return sb.String(), nil
		case b == '\r':
			if next, err := c.in.Peek(1); err == nil && next[0] == '\n' {
				_, _ = c.in.ReadByte()
			}
			return sb.String(), nil
		case b == '\t' || b >= ' ':
			sb.WriteByte(b)
		}
	}
}

// Write sends p under the write deadline.
func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.raw.Write(p)
}

// WriteLine sends text and a CRLF.
func (c *Conn) WriteLine(text string) error {
	_, err := io.WriteString(c, text+"\r\n")
	return err
}

// Close hangs up.
func (c *Conn) Close() error { return c.raw.Close() }

// RemoteAddr returns the player's address.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// FilterIAC returns input with every Telnet command removed. An escaped
// IAC IAC pair yields one 0xFF byte; a command cut off at the end of input is
// dropped.
func FilterIAC(input []byte) []byte {
	out := make([]byte, 0, len(input))
	var s iacState
	for _, b := range input {
		if d, ok := s.step(b); ok {
			out = append(out, d)
		}
	}
	return out
}
