package server

import (
	"errors"
	"fmt"

	"flashpoint/pkg/core"
	"flashpoint/pkg/protocol"
)

var ErrMissingField = errors.New("缺少字段")

// Request 服务器收到的一个请求
type Request struct {
	Type  string
	Seq   int64
	Token string

	// create 的原始参数，由会话覆盖到场景配置上
	Create map[string]any
	Seed   int64

	Steps int

	FirefighterID int
	Target        core.Position

	ClientTime int64
}

// Mutating 请求是否会修改模拟状态
func (r *Request) Mutating() bool {
	switch r.Type {
	case protocol.TypeStep, protocol.TypeSteps, protocol.TypeMove, protocol.TypeExtinguish,
		protocol.TypePickUp, protocol.TypeDrop, protocol.TypeReset:
		return true
	}
	return false
}

// Command 手动行动请求对应的指令
func (r *Request) Command() (core.Command, bool) {
	var kind core.CommandKind
	switch r.Type {
	case protocol.TypeMove:
		kind = core.CommandMove
	case protocol.TypeExtinguish:
		kind = core.CommandExtinguish
	case protocol.TypePickUp:
		kind = core.CommandPickUp
	case protocol.TypeDrop:
		kind = core.CommandDrop
	default:
		return core.Command{}, false
	}
	return core.Command{Kind: kind, FirefighterID: r.FirefighterID, Target: r.Target}, true
}

// DecodePacket 解析服务器收到的数据包
func DecodePacket(data []byte) (*Request, error) {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return nil, fmt.Errorf("解析包失败: %w", err)
	}

	req := &Request{Type: pkt.Type, Seq: pkt.Seq, Token: pkt.Token}
	switch pkt.Type {
	case protocol.TypeCreate:
		if pkt.Payload != nil {
			req.Create = pkt.Payload.AsMap()
		}
		req.Seed = int64(protocol.IntField(pkt, "seed", 0))

	case protocol.TypeSteps:
		req.Steps = protocol.IntField(pkt, "steps", 0)

	case protocol.TypeMove:
		if err := decodeFirefighter(pkt, req); err != nil {
			return req, err
		}
		x, okX := protocol.Field(pkt, "x").(float64)
		y, okY := protocol.Field(pkt, "y").(float64)
		if !okX || !okY {
			return req, fmt.Errorf("move: x/y %w", ErrMissingField)
		}
		req.Target = core.Position{X: int(x), Y: int(y)}

	case protocol.TypeExtinguish, protocol.TypePickUp, protocol.TypeDrop:
		if err := decodeFirefighter(pkt, req); err != nil {
			return req, err
		}

	case protocol.TypePing, protocol.TypePong:
		req.ClientTime = int64(protocol.IntField(pkt, "client_time", 0))

	case protocol.TypeState, protocol.TypeStep, protocol.TypeFirefighters, protocol.TypePOIs,
		protocol.TypeGrid, protocol.TypeWalls, protocol.TypeStats, protocol.TypeReset:

	default:
		return req, fmt.Errorf("未知请求类型: %s", pkt.Type)
	}
	return req, nil
}

func decodeFirefighter(pkt *protocol.Packet, req *Request) error {
	id, ok := protocol.Field(pkt, "firefighter_id").(float64)
	if !ok {
		return fmt.Errorf("%s: firefighter_id %w", pkt.Type, ErrMissingField)
	}
	req.FirefighterID = int(id)
	return nil
}
