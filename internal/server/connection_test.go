package server

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashpoint/internal/util"
	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

func pipeServer(t *testing.T, stepRate float64, stepBurst int) net.Conn {
	t.Helper()
	srv := NewGameServer(Options{
		StepRate:  stepRate,
		StepBurst: stepBurst,
		Session: SessionOptions{
			Scenario: testScenario(),
			NewRand:  func(int64) core.Rand { return util.Fixed(0.99) },
		},
	})
	srv.wg.Add(1)
	go srv.session.Run(&srv.wg)

	serverSide, clientSide := net.Pipe()
	conn := NewConnection(serverSide, srv)
	srv.wg.Add(1)
	go conn.Handle(srv.ctx, &srv.wg)

	t.Cleanup(func() {
		clientSide.Close()
		srv.Shutdown()
	})
	return clientSide
}

func writeFrame(t *testing.T, conn net.Conn, typ string, seq int64, token string, payload map[string]any) {
	t.Helper()
	pkt, err := protocol.NewRequestPacket(typ, seq, token, payload)
	require.NoError(t, err)
	data, err := protocol.MarshalPacket(pkt)
	require.NoError(t, err)

	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, binary.Write(conn, binary.BigEndian, uint32(len(data))))
	_, err = conn.Write(data)
	require.NoError(t, err)
}

// readPacket 读取下一条非 ping 消息
func readPacket(t *testing.T, conn net.Conn) *protocol.Packet {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var length uint32
		require.NoError(t, binary.Read(conn, binary.BigEndian, &length))
		data := make([]byte, length)
		_, err := io.ReadFull(conn, data)
		require.NoError(t, err)

		pkt, err := protocol.UnmarshalPacket(data)
		require.NoError(t, err)
		if pkt.Type != protocol.TypePing {
			return pkt
		}
	}
}

func readResponse(t *testing.T, conn net.Conn) *protocol.Response {
	t.Helper()
	resp, err := protocol.ParseResponse(readPacket(t, conn))
	require.NoError(t, err)
	return resp
}

func TestConnectionRequestResponse(t *testing.T) {
	conn := pipeServer(t, 20, 5)

	writeFrame(t, conn, protocol.TypeCreate, 7, "", map[string]any{"seed": 3})
	pkt := readPacket(t, conn)
	assert.Equal(t, int64(7), pkt.Seq)
	resp, err := protocol.ParseResponse(pkt)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	assert.EqualValues(t, 3, resp.Body["seed"])
	token := resp.Body["token"].(string)

	writeFrame(t, conn, protocol.TypeMove, 8, token, map[string]any{"firefighter_id": 0, "x": 2, "y": 0})
	resp = readResponse(t, conn)
	assert.Equal(t, protocol.TypeMove, resp.Request)
	assert.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
}

func TestConnectionPing(t *testing.T) {
	conn := pipeServer(t, 20, 5)

	writeFrame(t, conn, protocol.TypePing, 3, "", map[string]any{"client_time": 123})
	pkt := readPacket(t, conn)
	assert.Equal(t, protocol.TypePong, pkt.Type)
	assert.Equal(t, int64(3), pkt.Seq)
	assert.Equal(t, 123, protocol.IntField(pkt, "client_time", 0))
	assert.Positive(t, protocol.IntField(pkt, "server_time", 0))
}

func TestConnectionStepRateLimit(t *testing.T) {
	conn := pipeServer(t, 0.001, 1)

	writeFrame(t, conn, protocol.TypeCreate, 1, "", nil)
	token := readResponse(t, conn).Body["token"].(string)

	writeFrame(t, conn, protocol.TypeStep, 2, token, nil)
	assert.Equal(t, protocol.StatusSuccess, readResponse(t, conn).Status)

	writeFrame(t, conn, protocol.TypeSteps, 3, token, map[string]any{"steps": 2})
	resp := readResponse(t, conn)
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, ErrRateLimited.Error(), resp.Message)

	// 查询不受限速影响
	writeFrame(t, conn, protocol.TypeStats, 4, "", nil)
	assert.Equal(t, protocol.StatusSuccess, readResponse(t, conn).Status)
}

func TestConnectionBadRequestKeepsConnection(t *testing.T) {
	conn := pipeServer(t, 20, 5)

	writeFrame(t, conn, protocol.TypeMove, 5, "", map[string]any{"x": 1, "y": 1})
	pkt := readPacket(t, conn)
	assert.Equal(t, int64(5), pkt.Seq)
	resp, err := protocol.ParseResponse(pkt)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, ErrMissingField.Error())

	writeFrame(t, conn, protocol.TypeState, 6, "", nil)
	resp = readResponse(t, conn)
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Contains(t, resp.Message, ErrNoGame.Error())
}
