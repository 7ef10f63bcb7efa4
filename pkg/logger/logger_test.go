package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLogger_LevelsAndFormat(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStandardLogger(log.New(&buf, "", 0), Warn, "[test]")

	sl.Info("dropped")
	sl.Warn("kept", "key", "value")
	sl.Error("also kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[test] [WARN] kept key=value")
	assert.Contains(t, out, "[test] [ERROR] also kept")
}

func TestStandardLogger_LogMode(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStandardLogger(log.New(&buf, "", 0), Error, "[test]")

	sl.Warn("dropped at error level")
	sl.LogMode(Debug).Debug("kept at debug level")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[DEBUG] kept at debug level")
}

func TestDiscard(t *testing.T) {
	require.NotNil(t, Discard)
	assert.Same(t, Discard, Discard.LogMode(Debug))
	// All methods are no-ops.
	Discard.Info("x")
	Discard.Warn("x")
	Discard.Error("x")
	Discard.Debug("x")
}

func TestNewBuffered_DefaultMirrorIsDiscard(t *testing.T) {
	b := NewBuffered("test", Options{})
	assert.Same(t, Discard, b.opts.MirrorTo)

	// Logging through the default mirror must not panic.
	b.Error("mirrored to discard")
	assert.Equal(t, 1, b.Len())
}
