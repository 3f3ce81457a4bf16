package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func Test_DefaultConfigIsPopulated(t *testing.T) {
	cfg := DefaultConfig()

	assert.EqualValues(t, 8, cfg.MaxTermini)
	assert.EqualValues(t, 4096, cfg.MaxRecords)
	assert.Equal(t, 64*datasize.KB, cfg.BlobCapacity)
	assert.Equal(t, zapcore.InfoLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Termini)
}

func Test_LoadConfigOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdrd.yaml")

	yamlDoc := []byte(`
max_termini: 4
blob_capacity: 128KB
termini:
  - eid: 10
    tid: 1
  - eid: 11
    terminus_handle: 7
    tid: 2
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, yamlDoc, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.EqualValues(t, 4, cfg.MaxTermini)
	assert.Equal(t, 128*datasize.KB, cfg.BlobCapacity)
	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)

	// Fields not present in the YAML retain their defaults.
	assert.EqualValues(t, 4096, cfg.MaxRecords)

	require.Len(t, cfg.Termini, 2)
	assert.EqualValues(t, 10, cfg.Termini[0].EID)
	assert.EqualValues(t, 11, cfg.Termini[1].EID)
	assert.EqualValues(t, 7, cfg.Termini[1].TerminusHandle)
}

func Test_LoadConfigMissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
