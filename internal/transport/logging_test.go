// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"os"
	"strings"
	"testing"

	applog "pulse/internal/log"
)

type summary string

func (s summary) Summary() string { return string(s) }

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	prev := applog.GetLevel()
	applog.SetOutput(&buf)
	applog.SetLevel(applog.LevelDebug)
	t.Cleanup(func() {
		applog.SetLevel(prev)
		applog.SetOutput(os.Stderr)
	})

	lt := NewLoggingTransport()
	if err := lt.Send(summary("bpm=120 beat")); err != nil {
		t.Fatal(err)
	}
	if err := lt.Send(42); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "#1 bpm=120 beat") {
		t.Errorf("summary not logged:\n%s", out)
	}
	if !strings.Contains(out, "#2 int 42") {
		t.Errorf("plain value not logged:\n%s", out)
	}
	if lt.Sent() != 2 {
		t.Errorf("Sent() = %d, want 2", lt.Sent())
	}

	applog.SetLevel(applog.LevelError)
	buf.Reset()
	lt.Send(summary("quiet"))
	if buf.Len() != 0 || lt.Sent() != 3 {
		t.Errorf("above DEBUG nothing should be logged; got %q, sent %d", buf.String(), lt.Sent())
	}
	if err := lt.Close(); err != nil {
		t.Fatal(err)
	}
}
