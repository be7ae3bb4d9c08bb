// SPDX-License-Identifier: MIT
package visualizer

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pulse/internal/analysis"
	"pulse/internal/hands"
	"pulse/internal/signal"
	"pulse/internal/transport"
	"pulse/pkg/utils"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOptions() Options {
	return Options{
		Width:  64,
		Height: 48,
		Rand:   rand.New(rand.NewPCG(7, 11)),
	}
}

func loudSource() *signal.Static {
	return &signal.Static{
		Time: utils.EnergyFrame(1024, 0.6),
		Freq: make([]uint8, 1024),
	}
}

func TestTickBeatsDriveTempoAndParticles(t *testing.T) {
	v := New(loudSource(), nil, testOptions())

	f, ok := v.Tick(time.Second)
	if !ok {
		t.Fatal("Tick reported paused")
	}
	if !f.Beat || !f.IsBeat || f.BPM != 0 {
		t.Errorf("first beat frame = %+v", f)
	}
	if f.Particles != 50 {
		t.Errorf("particles at 0 BPM = %d, want 50", f.Particles)
	}

	f, _ = v.Tick(1500 * time.Millisecond)
	if !f.Beat || f.BPM != 120 {
		t.Errorf("second beat frame: beat=%v bpm=%d, want true 120", f.Beat, f.BPM)
	}
	if f.Particles != 80 {
		t.Errorf("particles at 120 BPM = %d, want 80", f.Particles)
	}
	if f.Seq != 2 || f.Time != 1.5 {
		t.Errorf("seq=%d time=%v, want 2 1.5", f.Seq, f.Time)
	}

	if h := v.History(); len(h) != 2 {
		t.Errorf("History() = %v, want two beats", h)
	}

	// Loud but debounced and outside the pulse window.
	f, _ = v.Tick(1650 * time.Millisecond)
	if f.Beat || f.IsBeat {
		t.Errorf("debounced frame reported beat=%v isBeat=%v", f.Beat, f.IsBeat)
	}
}

func TestTickLayers(t *testing.T) {
	v := New(loudSource(), nil, testOptions())
	f, _ := v.Tick(time.Second)

	if len(f.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(f.Layers))
	}
	// On a beat the base opacities [1 .5 .3] grow by half, capped at 1.
	want := []float64{1, 0.75, 0.45}
	for i, l := range f.Layers {
		if math.Abs(l.Opacity-want[i]) > 1e-9 {
			t.Errorf("layer %d opacity = %v, want %v", i, l.Opacity, want[i])
		}
		if l.HandX != 50 || l.HandY != 50 {
			t.Errorf("layer %d centre = %v,%v, want 50,50", i, l.HandX, l.HandY)
		}
		if l.Background == "" {
			t.Errorf("layer %d has no background", i)
		}
	}
}

func TestTickWithoutAudio(t *testing.T) {
	v := New(&signal.Static{}, nil, testOptions())
	f, ok := v.Tick(time.Second)
	if !ok {
		t.Fatal("Tick reported paused")
	}
	if f.BPM != 0 || f.Energy != 0 || f.IsBeat || f.Beat {
		t.Errorf("silent frame = %+v", f)
	}
	if f.Hands == nil {
		t.Error("Hands should marshal as [], not null")
	}
	if f.Bands != nil {
		t.Errorf("a source without bin spacing should not report bands: %+v", f.Bands)
	}
}

func TestTickSmoothsHandsOncePerDetection(t *testing.T) {
	feed := hands.NewFeed(2, 64, 48)
	v := New(&signal.Static{}, feed, testOptions())

	feed.PublishNormalized([]hands.Point{{X: 0.5, Y: 0.5}})
	f, _ := v.Tick(time.Second)
	if len(f.Hands) != 1 || f.Hands[0] != (hands.Point{X: 32, Y: 24}) {
		t.Fatalf("first detection = %+v, want raw (32,24)", f.Hands)
	}

	feed.PublishNormalized([]hands.Point{{X: 1, Y: 1}})
	f, _ = v.Tick(time.Second + time.Millisecond)
	want := hands.Point{X: 32 + 0.3*32, Y: 24 + 0.3*24}
	if math.Abs(f.Hands[0].X-want.X) > 1e-9 || math.Abs(f.Hands[0].Y-want.Y) > 1e-9 {
		t.Fatalf("smoothed = %+v, want %+v", f.Hands[0], want)
	}

	// No new detection: the smoothed position holds.
	f, _ = v.Tick(time.Second + 2*time.Millisecond)
	if math.Abs(f.Hands[0].X-want.X) > 1e-9 {
		t.Errorf("hands moved without a detection: %+v", f.Hands[0])
	}
	if f.Layers[0].Opacity != 1 {
		t.Errorf("hand presence should raise layer 0 opacity to 1, got %v", f.Layers[0].Opacity)
	}
}

func TestPauseFreezesState(t *testing.T) {
	v := New(loudSource(), nil, testOptions())
	v.Tick(time.Second)

	v.Pause()
	if !v.Paused() {
		t.Fatal("Paused() = false after Pause")
	}
	if _, ok := v.Tick(1500 * time.Millisecond); ok {
		t.Error("Tick ran while paused")
	}
	if h := v.History(); len(h) != 1 {
		t.Errorf("paused tick changed history: %v", h)
	}
	if f, _ := v.Latest(); f.Seq != 1 {
		t.Errorf("Latest().Seq = %d, want 1", f.Seq)
	}

	if paused := v.Toggle(); paused {
		t.Error("Toggle from paused should resume")
	}
	if f, ok := v.Tick(1500 * time.Millisecond); !ok || f.BPM != 120 {
		t.Errorf("resumed tick = %+v ok=%v", f, ok)
	}
}

func TestFramesReachTransports(t *testing.T) {
	mock := &utils.MockTransport{}
	failing := &utils.MockTransport{Err: errors.New("down")}
	v := New(loudSource(), nil, testOptions(), failing, mock)

	for i := range 3 {
		v.Tick(time.Duration(i) * 100 * time.Millisecond)
	}

	sent := mock.Sent()
	if len(sent) != 3 {
		t.Fatalf("mock received %d frames, want 3", len(sent))
	}
	f, ok := sent[2].(Frame)
	if !ok {
		t.Fatalf("sent %T, want Frame", sent[2])
	}
	if f.Seq != 3 {
		t.Errorf("last frame seq = %d, want 3", f.Seq)
	}

	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"seq", "bpm", "isBeat", "beat", "hands", "layers", "particles"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("frame JSON missing %q: %s", key, b)
		}
	}
}

func TestSnapshot(t *testing.T) {
	feed := hands.NewFeed(2, 64, 48)
	v := New(loudSource(), feed, testOptions())

	if _, ok := v.Snapshot(); ok {
		t.Error("Snapshot before the first tick should report nothing")
	}

	feed.Publish([]hands.Point{{X: 10, Y: 20}})
	v.Tick(time.Second)
	s, ok := v.Snapshot()
	if !ok {
		t.Fatal("Snapshot after a tick reported nothing")
	}
	if !s.IsBeat || !s.Registered || len(s.Hands) != 1 || s.Hands[0].X != 10 {
		t.Errorf("Snapshot() = %+v", s)
	}
}

func TestSavePNG(t *testing.T) {
	for _, draw := range []bool{false, true} {
		opts := testOptions()
		opts.Draw = draw
		v := New(loudSource(), nil, opts)
		v.Tick(time.Second)

		path := filepath.Join(t.TempDir(), "frame.png")
		if err := v.SavePNG(path); err != nil {
			t.Fatalf("draw=%v: SavePNG: %v", draw, err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("draw=%v: decode: %v", draw, err)
		}
		if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
			t.Errorf("draw=%v: size %v, want 64x48", draw, b)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	opts := testOptions()
	opts.FrameRate = 200
	v := New(loudSource(), nil, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if f, ok := v.Latest(); ok && f.Seq >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("frame loop did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFrameInterval(t *testing.T) {
	if got := (Options{}).FrameInterval(); got != time.Second/60 {
		t.Errorf("default interval = %v", got)
	}
	if got := (Options{FrameRate: 30}).FrameInterval(); got != time.Second/30 {
		t.Errorf("30 fps interval = %v", got)
	}
}

// writeBurstWAV writes 3s of 8 kHz mono silence with a 100ms full-scale
// square burst every 0.5s starting at first.
func writeBurstWAV(t *testing.T, first time.Duration) string {
	t.Helper()
	const rate = 8000
	data := make([]int, 3*rate)
	offset := int(first.Seconds() * rate)
	for k := range 6 {
		start := offset + k*rate/2
		for i := range rate / 10 {
			amp := 0.9
			v := int(amp * 32767)
			if i%2 == 1 {
				v = -v
			}
			data[start+i] = v
		}
	}

	path := filepath.Join(t.TempDir(), "bursts.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyze(t *testing.T) {
	src, err := signal.OpenWAV(writeBurstWAV(t, 250*time.Millisecond), signal.AnalyserOptions{FFTSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	mock := &utils.MockTransport{}

	report, err := Analyze(context.Background(), src, AnalyzeOptions{
		Options:    testOptions(),
		Transports: []transport.Transport{mock},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Frames != 180 {
		t.Errorf("Frames = %d, want 180", report.Frames)
	}
	if len(report.Beats) != 6 {
		t.Fatalf("Beats = %v, want 6", report.Beats)
	}
	for i := 1; i < len(report.Beats); i++ {
		gap := report.Beats[i] - report.Beats[i-1]
		if gap < 490*time.Millisecond || gap > 510*time.Millisecond {
			t.Errorf("gap %d = %v, want ~500ms", i, gap)
		}
	}
	if report.BPM != 120 {
		t.Errorf("BPM = %d, want 120", report.BPM)
	}
	if report.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", report.Duration)
	}
	sent := mock.Sent()
	if len(sent) != 180 {
		t.Fatalf("transport received %d frames, want 180", len(sent))
	}
	if last := sent[len(sent)-1].(Frame); len(last.Bands) != len(analysis.DefaultBands) {
		t.Errorf("analyser-backed frames should carry band levels, got %+v", last.Bands)
	}
	if len(report.Snapshots) != 0 {
		t.Errorf("unexpected snapshots %v", report.Snapshots)
	}
}

func TestAnalyzeOpeningBeat(t *testing.T) {
	src, err := signal.OpenWAV(writeBurstWAV(t, 0), signal.AnalyserOptions{FFTSize: 256})
	if err != nil {
		t.Fatal(err)
	}

	report, err := Analyze(context.Background(), src, AnalyzeOptions{Options: testOptions()})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Beats) != 6 {
		t.Fatalf("Beats = %v, want 6 including the burst at 0s", report.Beats)
	}
	if first := report.Beats[0]; first > 50*time.Millisecond {
		t.Errorf("first beat at %v, want within the first frames", first)
	}
	if report.BPM != 120 {
		t.Errorf("BPM = %d, want 120", report.BPM)
	}
}

func TestAnalyzeWritesFrames(t *testing.T) {
	src, err := signal.OpenWAV(writeBurstWAV(t, 250*time.Millisecond), signal.AnalyserOptions{FFTSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "frames")

	report, err := Analyze(context.Background(), src, AnalyzeOptions{
		Options:   testOptions(),
		FramesDir: dir,
		Every:     60,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Snapshots) != 3 {
		t.Fatalf("Snapshots = %v, want 3", report.Snapshots)
	}
	for _, p := range report.Snapshots {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("snapshot %s: %v", p, err)
		}
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	src, err := signal.OpenWAV(writeBurstWAV(t, 250*time.Millisecond), signal.AnalyserOptions{FFTSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Analyze(ctx, src, AnalyzeOptions{Options: testOptions()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if report.Frames != 0 {
		t.Errorf("Frames = %d, want 0", report.Frames)
	}
}
