package server

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("")
	require.NoError(t, err)
	assert.Equal(t, TransportTCP, tr)

	tr, err = ParseTransport("kcp")
	require.NoError(t, err)
	assert.Equal(t, TransportKCP, tr)

	_, err = ParseTransport("udp")
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestListenUnknownTransport(t *testing.T) {
	_, err := Listen(Transport("quic"), "127.0.0.1:0")
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestListenTCPTunesAcceptedConn(t *testing.T) {
	ln, err := Listen(TransportTCP, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	conn, ok := <-accepted
	require.True(t, ok)
	defer conn.Close()
	assert.IsType(t, &net.TCPConn{}, conn)

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestListenKCP(t *testing.T) {
	ln, err := Listen(TransportKCP, "127.0.0.1:0")
	require.NoError(t, err)
	assert.NotNil(t, ln.Addr())
	assert.NoError(t, ln.Close())
}
