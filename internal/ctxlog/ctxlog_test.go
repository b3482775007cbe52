package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&buf, "json", "debug")
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Debug("trial finished", "loss", -0.8)

	assert.Contains(t, buf.String(), `"msg":"trial finished"`)
	assert.Contains(t, buf.String(), `"loss":-0.8`)
}

func TestFromContextDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "text", "loud")
	assert.Error(t, err)

	logger, err := New(&bytes.Buffer{}, "TEXT", "WARN")
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
