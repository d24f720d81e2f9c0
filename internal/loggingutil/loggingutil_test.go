package loggingutil_test

import (
	"bytes"
	"strings"
	"testing"

	"pkt.systems/buildd/internal/loggingutil"
	"pkt.systems/pslog"
)

func TestEnsureBaseNil(t *testing.T) {
	t.Parallel()

	base := loggingutil.EnsureBase(nil)
	if base == nil {
		t.Fatal("EnsureBase(nil) returned nil")
	}
	base.Info("discarded")
}

func TestWithSubsystemTagsEntries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := loggingutil.WithSubsystem(pslog.NewStructured(&buf), "client.sdk")
	logger.Info("hello", "key", "value")
	out := buf.String()
	if !strings.Contains(out, "client.sdk") {
		t.Fatalf("subsystem missing from output: %s", out)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("message missing from output: %s", out)
	}
}

func TestWithSubsystemReplacesPrevious(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := loggingutil.WithSubsystem(pslog.NewStructured(&buf), "first")
	logger = loggingutil.WithSubsystem(logger, "second")
	logger.Info("msg")
	out := buf.String()
	if strings.Contains(out, "first") {
		t.Fatalf("stale subsystem in output: %s", out)
	}
	if !strings.Contains(out, "second") {
		t.Fatalf("subsystem missing from output: %s", out)
	}
}
