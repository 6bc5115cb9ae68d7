package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// 请求类型
const (
	TypeCreate       = "create"
	TypeState        = "state"
	TypeStep         = "step"
	TypeSteps        = "steps"
	TypeFirefighters = "firefighters"
	TypePOIs         = "pois"
	TypeGrid         = "grid"
	TypeWalls        = "walls"
	TypeStats        = "stats"
	TypeMove         = "move"
	TypeExtinguish   = "extinguish"
	TypePickUp       = "pickup"
	TypeDrop         = "drop"
	TypeReset        = "reset"
	TypePing         = "ping"
	TypePong         = "pong"
)

// 服务器消息类型
const (
	TypeResponse  = "response"
	TypeStepEvent = "step_event" // 自动推进时广播
)

// 响应状态
const (
	StatusSuccess = "success"
	StatusFailed  = "failed" // 行动未成功，不是错误
	StatusError   = "error"
)

var ErrInvalidPacket = errors.New("invalid packet")

// Packet 消息信封，线上格式为 google.protobuf.Struct
type Packet struct {
	Type    string
	Seq     int64
	Token   string
	Payload *structpb.Struct
}

// MarshalPacket 序列化消息包
func MarshalPacket(p *Packet) ([]byte, error) {
	if p == nil || p.Type == "" {
		return nil, ErrInvalidPacket
	}
	env := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue(p.Type),
		"seq":  structpb.NewNumberValue(float64(p.Seq)),
	}}
	if p.Token != "" {
		env.Fields["token"] = structpb.NewStringValue(p.Token)
	}
	if p.Payload != nil {
		env.Fields["payload"] = structpb.NewStructValue(p.Payload)
	}
	return proto.Marshal(env)
}

// UnmarshalPacket 反序列化消息包
func UnmarshalPacket(data []byte) (*Packet, error) {
	var env structpb.Struct
	if err := proto.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	fields := env.GetFields()
	typ := fields["type"].GetStringValue()
	if typ == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidPacket)
	}
	return &Packet{
		Type:    typ,
		Seq:     int64(fields["seq"].GetNumberValue()),
		Token:   fields["token"].GetStringValue(),
		Payload: fields["payload"].GetStructValue(),
	}, nil
}

// NewRequestPacket 构造请求消息包，payload 可为 nil
func NewRequestPacket(typ string, seq int64, token string, payload map[string]any) (*Packet, error) {
	p := &Packet{Type: typ, Seq: seq, Token: token}
	if payload != nil {
		s, err := structpb.NewStruct(payload)
		if err != nil {
			return nil, err
		}
		p.Payload = s
	}
	return p, nil
}

// NewResponsePacket 构造响应消息包，seq 与请求一致
func NewResponsePacket(seq int64, request, status, message string, data map[string]any) (*Packet, error) {
	body := map[string]any{
		"request": request,
		"status":  status,
		"message": message,
	}
	for k, v := range data {
		body[k] = v
	}
	s, err := structpb.NewStruct(body)
	if err != nil {
		return nil, err
	}
	return &Packet{Type: TypeResponse, Seq: seq, Payload: s}, nil
}

// NewErrorPacket 构造错误响应
func NewErrorPacket(seq int64, request string, err error) *Packet {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"request": structpb.NewStringValue(request),
		"status":  structpb.NewStringValue(StatusError),
		"message": structpb.NewStringValue(err.Error()),
	}}
	return &Packet{Type: TypeResponse, Seq: seq, Payload: s}
}

// NewPingPacket 构造心跳消息包
func NewPingPacket(clientTime int64) (*Packet, error) {
	return NewRequestPacket(TypePing, 0, "", map[string]any{"client_time": clientTime})
}

// NewPongPacket 构造心跳回应
func NewPongPacket(clientTime, serverTime int64) (*Packet, error) {
	return NewRequestPacket(TypePong, 0, "", map[string]any{
		"client_time": clientTime,
		"server_time": serverTime,
	})
}

// Response 响应的通用字段
type Response struct {
	Request string
	Status  string
	Message string
	Body    map[string]any
}

// ParseResponse 解析响应消息包
func ParseResponse(p *Packet) (*Response, error) {
	if p == nil || p.Type != TypeResponse {
		return nil, fmt.Errorf("%w: not a response", ErrInvalidPacket)
	}
	body := p.Payload.AsMap()
	return &Response{
		Request: stringField(body, "request"),
		Status:  stringField(body, "status"),
		Message: stringField(body, "message"),
		Body:    body,
	}, nil
}

// Field 读取 payload 中的字段，payload 为 nil 时返回 nil
func Field(p *Packet, key string) any {
	if p == nil || p.Payload == nil {
		return nil
	}
	v, ok := p.Payload.GetFields()[key]
	if !ok {
		return nil
	}
	return v.AsInterface()
}

// IntField 读取数值字段，缺省或类型不符时返回 def
func IntField(p *Packet, key string, def int) int {
	if f, ok := Field(p, key).(float64); ok {
		return int(f)
	}
	return def
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func listField(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}
