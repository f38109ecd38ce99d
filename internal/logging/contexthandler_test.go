package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/billeffect/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelDebug, false).With(slog.String("component", "test"))

	ctx := logging.WithAttrs(context.Background(), slog.String("workspace_id", "ws-1"))
	sibling := logging.WithAttrs(ctx, slog.String("bill_id", "b-1"))
	_ = logging.WithAttrs(ctx, slog.String("bill_id", "b-2"))

	logger.LogAttrs(sibling, slog.LevelInfo, "loaded bill")

	out := buf.String()
	require.Contains(t, out, "component=test")
	require.Contains(t, out, "workspace_id=ws-1")
	require.Contains(t, out, "bill_id=b-1")
	require.NotContains(t, out, "bill_id=b-2")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, logging.ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
