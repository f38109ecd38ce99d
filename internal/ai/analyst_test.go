package ai_test

import (
	"io"
	"testing"

	"github.com/myrjola/billeffect/internal/ai"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ai.Config
		wantMode string
		wantErr  error
	}{
		{name: "auto without key", cfg: ai.Config{Mode: ai.ModeAuto}, wantMode: ai.ModeOffline},
		{name: "empty mode without key", cfg: ai.Config{}, wantMode: ai.ModeOffline},
		{name: "auto with key", cfg: ai.Config{Mode: ai.ModeAuto, APIKey: "k"}, wantMode: ai.ModeRemote},
		{name: "remote with key", cfg: ai.Config{Mode: ai.ModeRemote, APIKey: "k"}, wantMode: ai.ModeRemote},
		{name: "remote without key", cfg: ai.Config{Mode: ai.ModeRemote}, wantErr: models.ErrConfiguration},
		{name: "offline with key", cfg: ai.Config{Mode: ai.ModeOffline, APIKey: "k"}, wantMode: ai.ModeOffline},
		{name: "unknown mode", cfg: ai.Config{Mode: "psychic"}, wantErr: ai.ErrUnknownMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyst, err := ai.New(tt.cfg, testhelpers.NewLogger(io.Discard))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, analyst)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantMode, analyst.Mode())
		})
	}
}
