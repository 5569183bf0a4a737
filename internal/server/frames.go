package server

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/Scrimzay/conquestsim/internal/types"
	"github.com/Scrimzay/conquestsim/internal/world"
)

type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingZstd Encoding = "zstd"
)

func ParseEncoding(raw string) (Encoding, bool) {
	switch raw {
	case "", string(EncodingJSON):
		return EncodingJSON, true
	case string(EncodingZstd):
		return EncodingZstd, true
	}
	return "", false
}

type frame struct {
	msgType int
	data    []byte
}

type snapshotMessage struct {
	Action   string         `json:"action"`
	Snapshot world.Snapshot `json:"snapshot"`
}

// frameEncoder turns a snapshot into one frame per encoding. EncodeAll on a
// shared zstd encoder is safe for concurrent use.
type frameEncoder struct {
	zenc *zstd.Encoder
}

func newFrameEncoder() (*frameEncoder, error) {
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &frameEncoder{zenc: zenc}, nil
}

// encode marshals s once and derives every encoding from the same bytes.
func (e *frameEncoder) encode(s world.Snapshot) (map[Encoding]frame, error) {
	raw, err := json.Marshal(snapshotMessage{Action: types.ActionSnapshot, Snapshot: s})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return map[Encoding]frame{
		EncodingJSON: {msgType: websocket.TextMessage, data: raw},
		EncodingZstd: {msgType: websocket.BinaryMessage, data: e.zenc.EncodeAll(raw, nil)},
	}, nil
}

func replyFrame(r types.Response) (frame, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return frame{}, fmt.Errorf("marshal reply: %w", err)
	}
	return frame{msgType: websocket.TextMessage, data: raw}, nil
}
