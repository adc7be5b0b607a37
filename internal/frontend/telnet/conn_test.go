package telnet

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func pipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return NewConn(server, time.Second, time.Second), client
}

func TestConn_ReadLine(t *testing.T) {
	conn, client := pipeConn(t)
	go func() {
		_, _ = client.Write([]byte{IAC, DO, OptSuppressGoAhead})
		_, _ = client.Write([]byte("sp\x07in\r\n"))
		_, _ = client.Write([]byte{IAC, SB, 24, 0, 'x', IAC, SE})
		_, _ = client.Write([]byte("quit\n"))
		_, _ = client.Write([]byte("\r"))
		_ = client.Close()
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "spin", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "quit", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestConn_ReadLineEOF(t *testing.T) {
	conn, client := pipeConn(t)
	go func() {
		_, _ = client.Write([]byte("partial"))
		_ = client.Close()
	}()
	line, err := conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "partial", line)
}

func TestConn_WriteAndNegotiate(t *testing.T) {
	conn, client := pipeConn(t)
	got := make(chan []byte, 1)
	go func() {
		buf, _ := io.ReadAll(io.LimitReader(client, int64(3+len("hello\r\n"))))
		got <- buf
	}()

	require.NoError(t, conn.Negotiate())
	require.NoError(t, conn.WriteLine("hello"))
	assert.Equal(t, append([]byte{IAC, WILL, OptSuppressGoAhead}, "hello\r\n"...), <-got)
}

func TestFilterIAC(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"plain", []byte("spin"), []byte("spin")},
		{"will", []byte{IAC, WILL, OptEcho, 'h', 'i'}, []byte("hi")},
		{"do inside", []byte{'a', IAC, DO, OptLinemode, 'b'}, []byte("ab")},
		{"dont only", []byte{IAC, DONT, OptEcho}, []byte{}},
		{"subnegotiation", []byte{IAC, SB, 24, 0, 'x', 't', IAC, SE, 'z'}, []byte("z")},
		{"escaped", []byte{'a', IAC, IAC, 'b'}, []byte{'a', IAC, 'b'}},
		{"nop", []byte{'x', IAC, NOP, 'y'}, []byte("xy")},
		{"truncated", []byte{'a', IAC}, []byte("a")},
		{"unterminated subnegotiation", []byte{'a', IAC, SB, 24, 'b'}, []byte("a")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterIAC(tc.input))
		})
	}
}

// Property: input without IAC bytes passes through unchanged.
func TestPropertyFilterIAC_NoIACBytesPassThrough(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOf(rapid.ByteRange(0, 254)).Draw(t, "input")
		assert.Equal(t, append([]byte{}, input...), FilterIAC(input))
	})
}

// Property: filtering never lengthens the input.
func TestPropertyFilterIAC_OutputNeverLongerThanInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOf(rapid.Byte()).Draw(t, "input")
		assert.LessOrEqual(t, len(FilterIAC(input)), len(input))
	})
}
