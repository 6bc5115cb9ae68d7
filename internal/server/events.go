package server

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

// StepSubject 每步结果发布的主题
const StepSubject = "flashpoint.steps"

// Publisher 对外发布每一步的结果
type Publisher interface {
	PublishStep(gameID string, report core.StepReport) error
	Close()
}

// NopPublisher 不发布任何内容
type NopPublisher struct{}

func (NopPublisher) PublishStep(string, core.StepReport) error { return nil }
func (NopPublisher) Close()                                    {}

// NATSPublisher 通过 NATS 发布步进结果
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher 连接 NATS，断线后无限重连
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("flashpoint-server"),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.MaxReconnects(-1),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: StepSubject}, nil
}

// PublishStep 消息体是 protobuf 编码的 Struct：{game_id, report}
func (p *NATSPublisher) PublishStep(gameID string, report core.StepReport) error {
	data, err := EncodeStepEvent(gameID, report)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// EncodeStepEvent 编码一条步进事件
func EncodeStepEvent(gameID string, report core.StepReport) ([]byte, error) {
	body, err := structpb.NewStruct(map[string]any{
		"game_id": gameID,
		"report":  protocol.StepReportToMap(report),
	})
	if err != nil {
		return nil, fmt.Errorf("编码步进事件失败: %w", err)
	}
	return proto.Marshal(body)
}

// DecodeStepEvent 解码步进事件，返回 gameID 和报告字段
func DecodeStepEvent(data []byte) (string, map[string]any, error) {
	var body structpb.Struct
	if err := proto.Unmarshal(data, &body); err != nil {
		return "", nil, fmt.Errorf("解码步进事件失败: %w", err)
	}
	m := body.AsMap()
	gameID, _ := m["game_id"].(string)
	report, _ := m["report"].(map[string]any)
	return gameID, report, nil
}
