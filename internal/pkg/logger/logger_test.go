package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureWritesJSONAndFile(t *testing.T) {
	defer Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout})

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "worker.log")

	lgr := Configure(Config{
		Level:  DebugLevel,
		Output: &buf,
		File:   FileConfig{Path: path},
	})
	lgr.Debug().Str("group", "g1").Msg("refreshed standings")

	assert.Contains(t, buf.String(), `"group":"g1"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "refreshed standings")
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(WarnLevel))
}
