package client

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

	kcp "github.com/xtaci/kcp-go/v5"

	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

const (
	MaxPacketSize  = 1 << 20
	requestTimeout = 5 * time.Second
)

var (
	ErrClosed        = errors.New("连接已关闭")
	ErrRequestFailed = errors.New("request failed")
)

// NetworkClient 与模拟服务器通信的客户端，请求按 seq 匹配响应
type NetworkClient struct {
	conn       net.Conn
	serverAddr string
	proto      string

	connected atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	seq       atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan *protocol.Packet

	tokenMu sync.RWMutex
	token   string

	sendChan  chan []byte
	eventChan chan *protocol.Packet
	errChan   chan error
}

// NewNetworkClient 创建网络客户端
func NewNetworkClient(serverAddr, proto string) *NetworkClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &NetworkClient{
		serverAddr: serverAddr,
		proto:      proto,
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[int64]chan *protocol.Packet),
		sendChan:   make(chan []byte, 256),
		eventChan:  make(chan *protocol.Packet, 64),
		errChan:    make(chan error, 1),
	}
}

// Connect 连接到服务器
func (nc *NetworkClient) Connect() error {
	log.Printf("连接到服务器: %s (%s)", nc.serverAddr, nc.proto)

	conn, err := nc.dial()
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	nc.start(conn)

	log.Printf("已连接到服务器: %s", conn.RemoteAddr())
	return nil
}

func (nc *NetworkClient) start(conn net.Conn) {
	nc.conn = conn
	nc.connected.Store(true)

	nc.wg.Add(1)
	go nc.receiveLoop()

	nc.wg.Add(1)
	go nc.sendLoop()
}

func (nc *NetworkClient) dial() (net.Conn, error) {
	switch nc.proto {
	case "", "tcp":
		return net.DialTimeout("tcp", nc.serverAddr, 5*time.Second)
	case "kcp":
		conn, err := kcp.DialWithOptions(nc.serverAddr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		conn.SetWriteDelay(false)
		conn.SetNoDelay(1, 20, 2, 1)
		conn.SetWindowSize(128, 128)
		return conn, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.proto)
	}
}

// Close 关闭连接
func (nc *NetworkClient) Close() {
	nc.closeOnce.Do(func() {
		nc.connected.Store(false)
		nc.cancel()
		if nc.conn != nil {
			nc.conn.Close()
		}
		nc.wg.Wait()
		log.Printf("网络客户端已关闭")
	})
}

// IsConnected 检查是否已连接
func (nc *NetworkClient) IsConnected() bool {
	return nc.connected.Load()
}

// Token 最近一次 create 获得的 Token
func (nc *NetworkClient) Token() string {
	nc.tokenMu.RLock()
	defer nc.tokenMu.RUnlock()
	return nc.token
}

// Err 返回接收循环的错误（非阻塞）
func (nc *NetworkClient) Err() error {
	select {
	case err := <-nc.errChan:
		return err
	default:
		return nil
	}
}

// ========== 消息接收 ==========

func (nc *NetworkClient) receiveLoop() {
	defer nc.wg.Done()
	defer nc.connected.Store(false)

	for {
		var length uint32
		if err := binary.Read(nc.conn, binary.BigEndian, &length); err != nil {
			if !errors.Is(err, io.EOF) && nc.ctx.Err() == nil {
				nc.reportErr(fmt.Errorf("读取长度失败: %w", err))
			}
			return
		}

		if length > MaxPacketSize {
			nc.reportErr(fmt.Errorf("消息过大 (%d bytes)", length))
			return
		}
		if length == 0 {
			continue
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(nc.conn, data); err != nil {
			if nc.ctx.Err() == nil {
				nc.reportErr(fmt.Errorf("读取数据失败: %w", err))
			}
			return
		}

		if err := nc.handleMessage(data); err != nil {
			log.Printf("处理消息失败: %v", err)
		}
	}
}

func (nc *NetworkClient) reportErr(err error) {
	select {
	case nc.errChan <- err:
	default:
	}
}

func (nc *NetworkClient) handleMessage(data []byte) error {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	switch pkt.Type {
	case protocol.TypeResponse, protocol.TypePong:
		nc.pendingMu.Lock()
		ch, ok := nc.pending[pkt.Seq]
		delete(nc.pending, pkt.Seq)
		nc.pendingMu.Unlock()
		if ok {
			ch <- pkt
		}

	case protocol.TypePing:
		// 原样带回服务器时间，服务器据此计算 RTT
		pong, err := protocol.NewPongPacket(int64(protocol.IntField(pkt, "client_time", 0)), time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return nc.sendPacket(pong)

	case protocol.TypeStepEvent:
		select {
		case nc.eventChan <- pkt:
		default:
			// 队列满，丢弃
		}

	default:
		return fmt.Errorf("未知消息类型: %s", pkt.Type)
	}
	return nil
}

// ReceiveEvent 接收自动推进广播（非阻塞）
func (nc *NetworkClient) ReceiveEvent() *protocol.Packet {
	select {
	case pkt := <-nc.eventChan:
		return pkt
	default:
		return nil
	}
}

// ========== 消息发送 ==========

func (nc *NetworkClient) sendLoop() {
	defer nc.wg.Done()

	for {
		select {
		case <-nc.ctx.Done():
			return

		case data := <-nc.sendChan:
			length := uint32(len(data))
			if err := binary.Write(nc.conn, binary.BigEndian, length); err != nil {
				log.Printf("发送长度失败: %v", err)
				return
			}
			if _, err := nc.conn.Write(data); err != nil {
				log.Printf("发送数据失败: %v", err)
				return
			}
		}
	}
}

func (nc *NetworkClient) sendPacket(pkt *protocol.Packet) error {
	data, err := protocol.MarshalPacket(pkt)
	if err != nil {
		return err
	}
	select {
	case nc.sendChan <- data:
		return nil
	default:
		return errors.New("发送队列满")
	}
}

// Request 发送请求并等待对应 seq 的响应
func (nc *NetworkClient) Request(ctx context.Context, typ string, payload map[string]any) (*protocol.Packet, error) {
	if !nc.IsConnected() {
		return nil, ErrClosed
	}

	seq := nc.seq.Add(1)
	pkt, err := protocol.NewRequestPacket(typ, seq, nc.Token(), payload)
	if err != nil {
		return nil, err
	}

	ch := make(chan *protocol.Packet, 1)
	nc.pendingMu.Lock()
	nc.pending[seq] = ch
	nc.pendingMu.Unlock()
	defer func() {
		nc.pendingMu.Lock()
		delete(nc.pending, seq)
		nc.pendingMu.Unlock()
	}()

	if err := nc.sendPacket(pkt); err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", typ, ctx.Err())
	case <-nc.ctx.Done():
		return nil, ErrClosed
	case resp := <-ch:
		return resp, nil
	}
}

// Call 发送请求并解析响应，status 为 error 时返回 ErrRequestFailed
func (nc *NetworkClient) Call(ctx context.Context, typ string, payload map[string]any) (*protocol.Response, error) {
	pkt, err := nc.Request(ctx, typ, payload)
	if err != nil {
		return nil, err
	}
	resp, err := protocol.ParseResponse(pkt)
	if err != nil {
		return nil, err
	}
	if resp.Status == protocol.StatusError {
		return resp, fmt.Errorf("%s: %w: %s", typ, ErrRequestFailed, resp.Message)
	}
	return resp, nil
}

// Ping 测量一次往返时间
func (nc *NetworkClient) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := nc.Request(ctx, protocol.TypePing, map[string]any{"client_time": start.UnixMilli()}); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// ========== 模拟操作 ==========

// Create 创建新模拟并保存 Token，params 使用 create 请求的字段名
func (nc *NetworkClient) Create(ctx context.Context, params map[string]any) (core.Snapshot, error) {
	resp, err := nc.Call(ctx, protocol.TypeCreate, params)
	if err != nil {
		return core.Snapshot{}, err
	}
	token, _ := resp.Body["token"].(string)
	nc.tokenMu.Lock()
	nc.token = token
	nc.tokenMu.Unlock()
	return snapshotField(resp, "initial_state")
}

// State 获取完整状态
func (nc *NetworkClient) State(ctx context.Context) (core.Snapshot, error) {
	resp, err := nc.Call(ctx, protocol.TypeState, nil)
	if err != nil {
		return core.Snapshot{}, err
	}
	return snapshotField(resp, "state")
}

// Step 推进一步并返回新状态
func (nc *NetworkClient) Step(ctx context.Context) (core.Snapshot, error) {
	resp, err := nc.Call(ctx, protocol.TypeStep, nil)
	if err != nil {
		return core.Snapshot{}, err
	}
	return snapshotField(resp, "state")
}

// Steps 推进 n 步
func (nc *NetworkClient) Steps(ctx context.Context, n int) (core.Snapshot, error) {
	resp, err := nc.Call(ctx, protocol.TypeSteps, map[string]any{"steps": n})
	if err != nil {
		return core.Snapshot{}, err
	}
	return snapshotField(resp, "state")
}

// Stats 获取聚合计数
func (nc *NetworkClient) Stats(ctx context.Context) (core.Stats, error) {
	resp, err := nc.Call(ctx, protocol.TypeStats, nil)
	if err != nil {
		return core.Stats{}, err
	}
	m, _ := resp.Body["stats"].(map[string]any)
	return protocol.StatsFromMap(m), nil
}

// Reset 删除当前模拟
func (nc *NetworkClient) Reset(ctx context.Context) error {
	_, err := nc.Call(ctx, protocol.TypeReset, nil)
	return err
}

// Command 发送手动行动，返回行动是否成功
func (nc *NetworkClient) Command(ctx context.Context, cmd core.Command) (bool, error) {
	payload := map[string]any{"firefighter_id": cmd.FirefighterID}
	if cmd.Kind == core.CommandMove {
		payload["x"] = cmd.Target.X
		payload["y"] = cmd.Target.Y
	}
	resp, err := nc.Call(ctx, string(cmd.Kind), payload)
	if err != nil {
		return false, err
	}
	return resp.Status == protocol.StatusSuccess, nil
}

func snapshotField(resp *protocol.Response, key string) (core.Snapshot, error) {
	m, ok := resp.Body[key].(map[string]any)
	if !ok {
		return core.Snapshot{}, fmt.Errorf("响应缺少 %s", key)
	}
	return protocol.SnapshotFromMap(m)
}
