package random_test

import (
	"strings"
	"testing"

	"github.com/myrjola/billeffect/internal/random"
	"github.com/stretchr/testify/require"
)

func TestLetters(t *testing.T) {
	tests := []struct {
		name   string
		length uint
	}{
		{name: "zero length", length: 0},
		{name: "32 length", length: 32},
		{name: "long", length: 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := random.Letters(tt.length)
			require.NoError(t, err)
			require.Len(t, got, int(tt.length))
			require.Empty(t, strings.Trim(got, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"))
		})
	}
}

func TestLetters_UsesWholeAlphabet(t *testing.T) {
	got, err := random.Letters(4096)
	require.NoError(t, err)
	require.True(t, strings.ContainsAny(got, "XYZ"), "letters beyond the first n are drawn")
}
