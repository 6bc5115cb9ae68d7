package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
)

// Transport 监听使用的传输协议
type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportKCP Transport = "kcp"
)

// ErrUnknownTransport 协议名既不是 tcp 也不是 kcp
var ErrUnknownTransport = errors.New("unsupported transport")

const (
	tcpKeepAlive = 30 * time.Second
	kcpWindow    = 128
)

// ParseTransport 解析协议名，空串视为 tcp
func ParseTransport(name string) (Transport, error) {
	switch Transport(name) {
	case "", TransportTCP:
		return TransportTCP, nil
	case TransportKCP:
		return TransportKCP, nil
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownTransport)
}

// tunedListener 接受连接后按协议调整参数
// 两种协议上的请求都很小且一问一答，都关闭 Nagle / 延迟发送
type tunedListener struct {
	net.Listener
	tune func(conn net.Conn)
}

func (l *tunedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.tune(conn)
	return conn, nil
}

// Listen 在 addr 上按协议监听
func Listen(transport Transport, addr string) (net.Listener, error) {
	switch transport {
	case TransportTCP:
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		return &tunedListener{Listener: ln, tune: tuneTCP}, nil

	case TransportKCP:
		ln, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		return &tunedListener{Listener: ln, tune: tuneKCP}, nil
	}
	return nil, fmt.Errorf("%q: %w", transport, ErrUnknownTransport)
}

func tuneTCP(conn net.Conn) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcp.SetNoDelay(true)
	_ = tcp.SetKeepAlive(true)
	_ = tcp.SetKeepAlivePeriod(tcpKeepAlive)
}

// tuneKCP 与客户端保持一致：流模式 + 快速重传
// 帧边界由长度前缀负责，心跳会话由 Connection 维护
func tuneKCP(conn net.Conn) {
	sess, ok := conn.(*kcp.UDPSession)
	if !ok {
		return
	}
	sess.SetStreamMode(true)
	sess.SetWriteDelay(false)
	sess.SetNoDelay(1, 20, 2, 1)
	sess.SetWindowSize(kcpWindow, kcpWindow)
}
