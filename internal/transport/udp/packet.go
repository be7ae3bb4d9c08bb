// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"pulse/internal/hands"
)

/*
Frame state packet (big endian)

| Field      | Type    | Bytes | Description                          |
|------------|---------|-------|--------------------------------------|
| Sequence   | uint32  | 4     | Monotonically increasing             |
| Timestamp  | int64   | 8     | Nanoseconds since epoch              |
| BPM        | uint16  | 2     | Tempo estimate, 0 until two beats    |
| Energy     | float32 | 4     | Mean squared amplitude of the frame  |
| Flags      | uint8   | 1     | bit0 isBeat, bit1 registered         |
| Hand count | uint8   | 1     | N                                    |
| Hands      | float32 | N*8   | x, y pairs in viewport pixels        |
*/

const (
	headerSize = 4 + 8 + 2 + 4 + 1 + 1
	handSize   = 8

	FlagBeat       = 1 << 0
	FlagRegistered = 1 << 1
)

var ErrShortPacket = errors.New("udp packet too short")

// Snapshot is the frame state carried by one packet.
type Snapshot struct {
	BPM        int
	Energy     float64
	IsBeat     bool
	Registered bool
	Hands      []hands.Point
}

// Packet is a decoded datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Snapshot
}

// AppendPacket encodes a packet onto buf. At most 255 hands are encoded.
func AppendPacket(buf []byte, seq uint32, timestamp int64, s Snapshot) []byte {
	var flags uint8
	if s.IsBeat {
		flags |= FlagBeat
	}
	if s.Registered {
		flags |= FlagRegistered
	}
	pts := s.Hands
	if len(pts) > math.MaxUint8 {
		pts = pts[:math.MaxUint8]
	}
	bpm := min(max(s.BPM, 0), math.MaxUint16)

	buf = binary.BigEndian.AppendUint32(buf, seq)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = binary.BigEndian.AppendUint16(buf, uint16(bpm))
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(s.Energy)))
	buf = append(buf, flags, uint8(len(pts)))
	for _, p := range pts {
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(p.X)))
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(p.Y)))
	}
	return buf
}

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	var p Packet
	p.Seq = binary.BigEndian.Uint32(data[0:])
	p.Timestamp = int64(binary.BigEndian.Uint64(data[4:]))
	p.BPM = int(binary.BigEndian.Uint16(data[12:]))
	p.Energy = float64(math.Float32frombits(binary.BigEndian.Uint32(data[14:])))
	flags := data[18]
	p.IsBeat = flags&FlagBeat != 0
	p.Registered = flags&FlagRegistered != 0

	n := int(data[19])
	if len(data) < headerSize+n*handSize {
		return Packet{}, fmt.Errorf("%w: %d hands need %d bytes, have %d",
			ErrShortPacket, n, headerSize+n*handSize, len(data))
	}
	p.Hands = make([]hands.Point, n)
	for i := range n {
		off := headerSize + i*handSize
		p.Hands[i] = hands.Point{
			X: float64(math.Float32frombits(binary.BigEndian.Uint32(data[off:]))),
			Y: float64(math.Float32frombits(binary.BigEndian.Uint32(data[off+4:]))),
		}
	}
	return p, nil
}
