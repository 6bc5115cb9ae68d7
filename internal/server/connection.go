package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"flashpoint/pkg/protocol"
)

const (
	MaxPacketSize = 1 << 20         // 最大消息大小，完整快照可能较大
	readTimeout   = 30 * time.Second // 读取超时
	writeTimeout  = 1 * time.Second  // 写入超时
)

var (
	ErrSendQueueFull    = errors.New("发送队列满")
	ErrRateLimited      = errors.New("rate limited")
	ErrConnectionClosed = errors.New("连接已关闭")
)

var nextConnID atomic.Int64

// Connection 表示一个客户端连接
type Connection struct {
	conn    net.Conn
	server  *GameServer
	id      int64
	limiter *rate.Limiter

	// 发送队列
	sendChan chan []byte
	closeCh  chan struct{}
	closed   bool
	closeMu  sync.Mutex

	lastRecvTime atomic.Value
	lastPingTime atomic.Value
	rtt          atomic.Int64
}

// NewConnection 创建新连接，连接到服务器上
func NewConnection(conn net.Conn, server *GameServer) *Connection {
	c := &Connection{
		conn:     conn,
		server:   server,
		id:       nextConnID.Add(1),
		limiter:  rate.NewLimiter(rate.Limit(server.stepRate), server.stepBurst),
		sendChan: make(chan []byte, 256),
		closeCh:  make(chan struct{}),
	}
	c.lastRecvTime.Store(time.Now())
	c.lastPingTime.Store(time.Time{})
	return c
}

// Handle 处理连接
func (c *Connection) Handle(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Printf("连接 %d: 处理开始 (%s)", c.id, c.conn.RemoteAddr())

	wg.Add(1)
	go c.startHeartbeat(ctx, wg)

	wg.Add(1)
	go c.sendLoop(ctx, wg)

	wg.Add(1)
	go c.receiveLoop(ctx, wg)

	select {
	case <-ctx.Done():
	case <-c.closeCh:
	}

	c.Close()
}

// Close 关闭连接并取消会话订阅
func (c *Connection) Close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}

	c.closed = true
	close(c.closeCh)

	if c.conn != nil {
		c.conn.Close()
	}
	close(c.sendChan)
	c.closeMu.Unlock()

	c.server.session.Leave(c)

	log.Printf("连接 %d: 已关闭", c.id)
}

// Send 发送数据（异步）
func (c *Connection) Send(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Connection) sendPacket(pkt *protocol.Packet) {
	data, err := protocol.MarshalPacket(pkt)
	if err != nil {
		log.Printf("连接 %d: 序列化失败: %v", c.id, err)
		return
	}
	if err := c.Send(data); err != nil {
		log.Printf("连接 %d: 发送失败: %v", c.id, err)
	}
}

// sendLoop 发送循环
func (c *Connection) sendLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-c.sendChan:
			if !ok {
				return
			}

			// 长度前缀（4 字节）
			length := uint32(len(data))
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := binary.Write(c.conn, binary.BigEndian, length); err != nil {
				log.Printf("连接 %d: 发送长度失败: %v", c.id, err)
				c.Close()
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.conn.Write(data); err != nil {
				log.Printf("连接 %d: 发送数据失败: %v", c.id, err)
				c.Close()
				return
			}
		}
	}
}

// receiveLoop 接收循环
func (c *Connection) receiveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		default:
			var length uint32
			_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
			if err := binary.Read(c.conn, binary.BigEndian, &length); err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					log.Printf("连接 %d: 读取超时", c.id)
				} else if err != io.EOF {
					log.Printf("连接 %d: 读取长度失败: %v", c.id, err)
				}
				c.Close()
				return
			}

			if length > MaxPacketSize {
				log.Printf("连接 %d: 消息过大 (%d bytes)", c.id, length)
				c.Close()
				return
			}

			if length == 0 {
				continue
			}

			data := make([]byte, length)
			_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, err := io.ReadFull(c.conn, data); err != nil {
				log.Printf("连接 %d: 读取数据失败: %v", c.id, err)
				c.Close()
				return
			}

			c.onMessageReceived()
			if err := c.handleMessage(data); err != nil {
				log.Printf("连接 %d: 处理消息失败: %v", c.id, err)
			}
		}
	}
}

// handleMessage 处理一条请求；请求本身的错误以 error 响应返回给客户端
func (c *Connection) handleMessage(data []byte) error {
	req, err := DecodePacket(data)
	if err != nil {
		if req != nil {
			c.sendPacket(protocol.NewErrorPacket(req.Seq, req.Type, err))
		}
		return err
	}

	switch req.Type {
	case protocol.TypePing:
		pong, err := protocol.NewPongPacket(req.ClientTime, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		pong.Seq = req.Seq
		c.sendPacket(pong)
		return nil

	case protocol.TypePong:
		c.handlePong(req.ClientTime)
		return nil

	case protocol.TypeStep, protocol.TypeSteps:
		if !c.limiter.Allow() {
			c.sendPacket(protocol.NewErrorPacket(req.Seq, req.Type, ErrRateLimited))
			return nil
		}
	}

	resp, err := c.server.session.Do(c, req)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Type, err)
	}
	c.sendPacket(resp)
	return nil
}

// String 返回连接的字符串表示
func (c *Connection) String() string {
	return fmt.Sprintf("Connection{%d, %s}", c.id, c.conn.RemoteAddr())
}

// RTT 最近一次心跳往返时间
func (c *Connection) RTT() time.Duration {
	return time.Duration(c.rtt.Load()) * time.Millisecond
}

const (
	heartbeatInterval = 5 * time.Second
	heartbeatTimeout  = 60 * time.Second
)

func (c *Connection) startHeartbeat(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			lastRecv, _ := c.lastRecvTime.Load().(time.Time)
			if !lastRecv.IsZero() && time.Since(lastRecv) > heartbeatTimeout {
				log.Printf("连接 %d: 心跳超时", c.id)
				c.Close()
				return
			}
			c.sendPing()
		}
	}
}

func (c *Connection) sendPing() {
	packet, err := protocol.NewPingPacket(time.Now().UnixMilli())
	if err != nil {
		return
	}
	data, err := protocol.MarshalPacket(packet)
	if err != nil {
		return
	}
	c.lastPingTime.Store(time.Now())
	_ = c.Send(data)
}

func (c *Connection) handlePong(clientTime int64) {
	if clientTime <= 0 {
		return
	}
	c.rtt.Store(time.Now().UnixMilli() - clientTime)
}

func (c *Connection) onMessageReceived() {
	c.lastRecvTime.Store(time.Now())
}
