package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
)

// Options 服务器参数
type Options struct {
	Addr  string
	Proto string

	// 每个连接的 step/steps 限速
	StepRate  float64
	StepBurst int

	Session SessionOptions
}

// GameServer 模拟服务器，所有连接共享同一个会话
type GameServer struct {
	session *Session

	stepRate  float64
	stepBurst int

	// 网络
	listener  net.Listener
	addr      string
	transport Transport

	// 控制
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// NewGameServer 创建服务器
func NewGameServer(opts Options) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.StepRate <= 0 {
		opts.StepRate = 20
	}
	if opts.StepBurst <= 0 {
		opts.StepBurst = 5
	}

	return &GameServer{
		session:   NewSession(ctx, opts.Session),
		stepRate:  opts.StepRate,
		stepBurst: opts.StepBurst,
		addr:      opts.Addr,
		transport: Transport(opts.Proto),
		ctx:       ctx,
		cancel:    cancel,
		shutdown:  make(chan struct{}),
	}
}

// Start 启动服务器，阻塞到 Shutdown 被调用
func (s *GameServer) Start() error {
	log.Printf("启动模拟服务器: %s (%s)", s.addr, s.transport)

	transport, err := ParseTransport(string(s.transport))
	if err != nil {
		return err
	}
	listener, err := Listen(transport, s.addr)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.listener = listener

	log.Printf("服务器监听中: %s", listener.Addr())

	s.wg.Add(1)
	go s.session.Run(&s.wg)

	s.wg.Add(1)
	go s.acceptLoop()

	<-s.shutdown

	log.Println("服务器正在关闭...")
	return nil
}

// Shutdown 优雅关闭服务器
func (s *GameServer) Shutdown() {
	s.once.Do(func() {
		log.Println("正在关闭服务器...")

		s.cancel()
		s.session.Shutdown()

		if s.listener != nil {
			s.listener.Close()
		}

		close(s.shutdown)
		s.wg.Wait()

		if err := s.session.opts.Recorder.Close(); err != nil {
			log.Printf("关闭记录器失败: %v", err)
		}
		s.session.opts.Publisher.Close()

		log.Println("服务器已关闭")
	})
}

// acceptLoop 接受客户端连接
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("停止接受新连接")
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.Printf("接受连接失败: %v", err)
				continue
			}
		}

		log.Printf("新连接来自: %s", conn.RemoteAddr())

		connection := NewConnection(conn, s)

		s.wg.Add(1)
		go connection.Handle(s.ctx, &s.wg)
	}
}
