// Package ngwire implements the sniffer UDP wire protocol (§6): a
// 4-byte repeated-byte type preamble, a 1-byte version, then a
// fixed-length little-endian C-struct payload. It is the codec layer
// underneath NgControl's process-supervision and DCI-fetcher logic.
package ngwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FrameType identifies one of the five preambles the sniffer protocol
// defines.
type FrameType byte

const (
	TypeStart   FrameType = 0xCC
	TypeDci     FrameType = 0xAA
	TypeCellDci FrameType = 0xAB
	TypeConfig  FrameType = 0xBB
	TypeExit    FrameType = 0xFF
)

func (t FrameType) String() string {
	switch t {
	case TypeStart:
		return "Start"
	case TypeDci:
		return "Dci"
	case TypeCellDci:
		return "CellDci"
	case TypeConfig:
		return "Config"
	case TypeExit:
		return "Exit"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", byte(t))
	}
}

// MaxFrameSize is the upper bound on an accepted UDP datagram (§6).
const MaxFrameSize = 1400

// Fixed payload sizes by frame type (§6).
const (
	DciPayloadSize     = 40
	CellDciPayloadSize = 448
	ConfigPayloadSize  = 12
)

const (
	preambleSize = 4
	versionSize  = 1
	headerSize   = preambleSize + versionSize
	// Version is the only protocol version this codec accepts.
	Version byte = 1
)

var preambleBytes = map[FrameType][4]byte{
	TypeStart:   {0xCC, 0xCC, 0xCC, 0xCC},
	TypeDci:     {0xAA, 0xAA, 0xAA, 0xAA},
	TypeCellDci: {0xAB, 0xAB, 0xAB, 0xAB},
	TypeConfig:  {0xBB, 0xBB, 0xBB, 0xBB},
	TypeExit:    {0xFF, 0xFF, 0xFF, 0xFF},
}

// Frame is one decoded wire frame: its type and the raw payload bytes,
// still awaiting struct-specific decoding.
type Frame struct {
	Type    FrameType
	Version byte
	Payload []byte
}

// payloadSizeFor reports the fixed payload size for a frame type, or
// false if the type carries no payload (Start, Exit).
func payloadSizeFor(t FrameType) (int, bool) {
	switch t {
	case TypeDci:
		return DciPayloadSize, true
	case TypeCellDci:
		return CellDciPayloadSize, true
	case TypeConfig:
		return ConfigPayloadSize, true
	default:
		return 0, false
	}
}

// Decode parses one UDP datagram into a Frame. It rejects frames above
// MaxFrameSize, unknown preambles, and payloads of the wrong length for
// their declared type (§7 "Decode" error kind — the caller logs and
// skips the iteration rather than propagating).
func Decode(datagram []byte) (Frame, error) {
	if len(datagram) > MaxFrameSize {
		return Frame{}, fmt.Errorf("ngwire: frame of %d bytes exceeds max %d", len(datagram), MaxFrameSize)
	}
	if len(datagram) < headerSize {
		return Frame{}, fmt.Errorf("ngwire: frame of %d bytes shorter than header %d", len(datagram), headerSize)
	}

	var preamble [4]byte
	copy(preamble[:], datagram[:4])

	ft, err := frameTypeFor(preamble)
	if err != nil {
		return Frame{}, err
	}

	version := datagram[4]
	payload := datagram[headerSize:]

	if size, hasPayload := payloadSizeFor(ft); hasPayload {
		if len(payload) != size {
			return Frame{}, fmt.Errorf("ngwire: %s frame payload is %d bytes, want %d", ft, len(payload), size)
		}
	} else if len(payload) != 0 {
		return Frame{}, fmt.Errorf("ngwire: %s frame carries unexpected %d-byte payload", ft, len(payload))
	}

	return Frame{Type: ft, Version: version, Payload: payload}, nil
}

func frameTypeFor(preamble [4]byte) (FrameType, error) {
	for ft, p := range preambleBytes {
		if preamble == p {
			return ft, nil
		}
	}
	return 0, fmt.Errorf("ngwire: unknown frame preamble % X", preamble[:])
}

// EncodeStart builds the handshake frame the client sends once to the
// sniffer's known address to announce itself (§6).
func EncodeStart() []byte {
	return encodeHeaderOnly(TypeStart)
}

// EncodeExit builds the frame sent to request the sniffer process stop
// listening for a session.
func EncodeExit() []byte {
	return encodeHeaderOnly(TypeExit)
}

func encodeHeaderOnly(t FrameType) []byte {
	p := preambleBytes[t]
	buf := make([]byte, 0, headerSize)
	buf = append(buf, p[:]...)
	buf = append(buf, Version)
	return buf
}

// EncodeConfig serialises a Config payload behind its frame header.
func EncodeConfig(cfg Config) ([]byte, error) {
	payload, err := cfg.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return frame(TypeConfig, payload), nil
}

func frame(t FrameType, payload []byte) []byte {
	p := preambleBytes[t]
	buf := make([]byte, 0, headerSize+len(payload))
	buf = append(buf, p[:]...)
	buf = append(buf, Version)
	buf = append(buf, payload...)
	return buf
}

// Config is the Config frame payload (§6): 12 fixed bytes describing
// the sniffer session the client is requesting.
type Config struct {
	CellID    uint32
	RntiShare uint8
	LogDci    uint8
	Reserved  uint16
	Interval  uint32
}

func (c Config) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(ConfigPayloadSize)
	fields := []interface{}{c.CellID, c.RntiShare, c.LogDci, c.Reserved, c.Interval}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("ngwire: encoding config field: %w", err)
		}
	}
	if buf.Len() != ConfigPayloadSize {
		return nil, fmt.Errorf("ngwire: encoded config is %d bytes, want %d", buf.Len(), ConfigPayloadSize)
	}
	return buf.Bytes(), nil
}

func (c *Config) UnmarshalBinary(data []byte) error {
	if len(data) != ConfigPayloadSize {
		return fmt.Errorf("ngwire: config payload is %d bytes, want %d", len(data), ConfigPayloadSize)
	}
	r := bytes.NewReader(data)
	for _, f := range []interface{}{&c.CellID, &c.RntiShare, &c.LogDci, &c.Reserved, &c.Interval} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("ngwire: decoding config field: %w", err)
		}
	}
	return nil
}
