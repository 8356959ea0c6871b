package xcache

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec 定义 L2 值的序列化方式。
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSONCodec 使用 encoding/json，默认编解码器。
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return "json" }

// MsgpackCodec 使用 msgpack，体积更小，适合大对象。
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (MsgpackCodec) Name() string                       { return "msgpack" }

// CodecByName 按名称返回编解码器，未知名称返回 false。
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSONCodec{}, true
	case "msgpack":
		return MsgpackCodec{}, true
	default:
		return nil, false
	}
}
