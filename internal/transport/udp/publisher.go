// SPDX-License-Identifier: MIT

// Package udp publishes the latest frame state as fixed-layout datagrams for
// consumers that cannot speak websocket, such as lighting controllers.
package udp

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "pulse/internal/log"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 33 * time.Millisecond

// SnapshotSource provides the latest frame state. ok is false until the
// first frame has been processed.
type SnapshotSource interface {
	Snapshot() (s Snapshot, ok bool)
}

// PacketSender sends one datagram.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically packs the latest snapshot and hands it to a
// PacketSender. It runs one goroutine between Start and Stop.
type Publisher struct {
	sender   PacketSender
	source   SnapshotSource
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	seq    uint32
	packet []byte // Reused between sends.
}

// NewPublisher validates its collaborators. A non-positive interval falls
// back to DefaultInterval.
func NewPublisher(interval time.Duration, sender PacketSender, source SnapshotSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp publisher: snapshot source cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		now:      time.Now,
		packet:   make([]byte, 0, headerSize+2*handSize),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started")
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it. Calling it when stopped is a
// no-op.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Stopped after %d packets", p.seq)
	return nil
}

// Run publishes until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()
	return p.Stop()
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}

// publish sends the latest snapshot. Nothing is sent before the first frame.
func (p *Publisher) publish() {
	s, ok := p.source.Snapshot()
	if !ok {
		return
	}
	p.seq++
	p.packet = AppendPacket(p.packet[:0], p.seq, p.now().UnixNano(), s)
	if err := p.sender.Send(p.packet); err != nil {
		applog.Debugf("UDPPublisher: Packet %d not sent: %v", p.seq, err)
		return
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.seq, len(p.packet))
}

var _ interface{ Close() error } = (*Publisher)(nil)
