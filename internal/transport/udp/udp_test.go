// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"pulse/internal/hands"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPacketLayout(t *testing.T) {
	s := Snapshot{
		BPM:        128,
		Energy:     0.5,
		IsBeat:     true,
		Registered: false,
		Hands:      []hands.Point{{X: 320, Y: 240}, {X: 1, Y: 2.5}},
	}
	buf := AppendPacket(nil, 7, 1234567890, s)

	if len(buf) != headerSize+2*handSize {
		t.Fatalf("packet length = %d, want %d", len(buf), headerSize+2*handSize)
	}
	if buf[18] != FlagBeat {
		t.Errorf("flags = %08b, want only the beat bit", buf[18])
	}
	if buf[19] != 2 {
		t.Errorf("hand count byte = %d, want 2", buf[19])
	}

	p, err := DecodePacket(buf)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Seq != 7 || p.Timestamp != 1234567890 || p.BPM != 128 || p.Energy != 0.5 {
		t.Errorf("header = %+v", p)
	}
	if !p.IsBeat || p.Registered {
		t.Errorf("flags decoded as beat=%v registered=%v", p.IsBeat, p.Registered)
	}
	if len(p.Hands) != 2 || p.Hands[0] != s.Hands[0] || p.Hands[1] != s.Hands[1] {
		t.Errorf("hands = %+v", p.Hands)
	}
}

func TestPacketClampsFields(t *testing.T) {
	buf := AppendPacket(nil, 1, 0, Snapshot{BPM: -5, Registered: true})
	p, err := DecodePacket(buf)
	if err != nil {
		t.Fatal(err)
	}
	if p.BPM != 0 || !p.Registered || p.IsBeat || len(p.Hands) != 0 {
		t.Errorf("decoded %+v", p)
	}
}

func TestDecodeShortPacket(t *testing.T) {
	if _, err := DecodePacket(make([]byte, headerSize-1)); !errors.Is(err, ErrShortPacket) {
		t.Errorf("short header error = %v", err)
	}

	buf := AppendPacket(nil, 1, 0, Snapshot{Hands: []hands.Point{{X: 1, Y: 1}}})
	if _, err := DecodePacket(buf[:len(buf)-1]); !errors.Is(err, ErrShortPacket) {
		t.Errorf("truncated hands error = %v", err)
	}
}

type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (r *recordingSender) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.packets = append(r.packets, append([]byte(nil), data...))
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets)
}

type staticSource struct {
	s  Snapshot
	ok bool
}

func (s staticSource) Snapshot() (Snapshot, bool) { return s.s, s.ok }

func TestNewPublisherValidation(t *testing.T) {
	if _, err := NewPublisher(time.Millisecond, nil, staticSource{}); err == nil {
		t.Error("nil sender should be rejected")
	}
	if _, err := NewPublisher(time.Millisecond, &recordingSender{}, nil); err == nil {
		t.Error("nil source should be rejected")
	}
	p, err := NewPublisher(0, &recordingSender{}, staticSource{})
	if err != nil || p.interval != DefaultInterval {
		t.Errorf("zero interval: %v, interval %v", err, p.interval)
	}
}

func TestPublisherSequence(t *testing.T) {
	sender := &recordingSender{}
	src := staticSource{s: Snapshot{BPM: 90, Hands: []hands.Point{{X: 5, Y: 6}}}, ok: true}
	p, err := NewPublisher(time.Millisecond, sender, src)
	if err != nil {
		t.Fatal(err)
	}
	p.now = func() time.Time { return time.Unix(0, 42) }

	p.Start()
	p.Start() // no-op while running
	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}

	if sender.count() < 3 {
		t.Fatalf("only %d packets sent", sender.count())
	}
	for i, raw := range sender.packets {
		pkt, err := DecodePacket(raw)
		if err != nil {
			t.Fatal(err)
		}
		if pkt.Seq != uint32(i+1) || pkt.Timestamp != 42 || pkt.BPM != 90 {
			t.Errorf("packet %d = %+v", i, pkt)
		}
	}
}

func TestPublisherWaitsForFirstFrame(t *testing.T) {
	sender := &recordingSender{}
	p, err := NewPublisher(time.Millisecond, sender, staticSource{})
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		p.publish()
	}
	if sender.count() != 0 {
		t.Errorf("%d packets sent before the first frame", sender.count())
	}

	sender.err = errors.New("network down")
	p.source = staticSource{ok: true}
	p.publish()
	if p.seq != 1 {
		t.Errorf("seq = %d, failed sends still consume a sequence number", p.seq)
	}
}

func TestSenderDeliversDatagram(t *testing.T) {
	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	s, err := NewSender(ln.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	want := AppendPacket(nil, 3, 99, Snapshot{BPM: 140, IsBeat: true})
	if err := s.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 1500)
	ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := ln.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	pkt, err := DecodePacket(buf[:n])
	if err != nil || pkt.Seq != 3 || pkt.BPM != 140 || !pkt.IsBeat {
		t.Errorf("received %+v, %v", pkt, err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Send(want); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send after Close = %v", err)
	}
}

func TestNewSenderBadAddress(t *testing.T) {
	if _, err := NewSender("not an address"); err == nil {
		t.Error("expected resolve error")
	}
}
