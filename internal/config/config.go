// Package config loads the YAML configuration for the pdrd daemon and CLI.
package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/openpldm/pdrd/internal/logging"
)

// TerminusConfig describes one statically configured remote terminus
// the daemon should discover and keep synced.
type TerminusConfig struct {
	// EID is the MCTP endpoint ID of the terminus.
	EID uint8 `yaml:"eid"`
	// TerminusHandle is the PLDM terminus handle reported by the
	// terminus locator, 0 if unknown at startup.
	TerminusHandle uint16 `yaml:"terminus_handle"`
	// TID is the PLDM terminus ID.
	TID uint8 `yaml:"tid"`
}

// Config is the top-level configuration for the consolidated PDR
// repository, its manager, and the termini it syncs against.
type Config struct {
	// MaxTermini bounds the number of termini slots the manager
	// allocates.
	MaxTermini uint8 `yaml:"max_termini"`
	// MaxRecords bounds the number of records the consolidated
	// repository's index can hold.
	MaxRecords uint32 `yaml:"max_records"`
	// BlobCapacity bounds the consolidated repository's backing blob.
	BlobCapacity datasize.ByteSize `yaml:"blob_capacity"`
	// TransferChunkSize is parsed but not read by pldmctl: GetPDR
	// transfers always use pdr.TransferChunkSize.
	TransferChunkSize uint32 `yaml:"transfer_chunk_size"`
	// ReassemblyBufSize bounds the scratch buffer used to reassemble
	// a multi-part GetPDR transfer.
	ReassemblyBufSize datasize.ByteSize `yaml:"reassembly_buf_size"`
	// ChangeEventMaxRecords is parsed but not read by pldmctl: the
	// change-event codec always uses chgevent.MaxChangeRecords.
	ChangeEventMaxRecords int `yaml:"change_event_max_records"`
	// ChangeEventMaxEntries is parsed but not read by pldmctl: the
	// change-event codec and tracker always use
	// chgevent.MaxChangeEntries.
	ChangeEventMaxEntries int `yaml:"change_event_max_entries"`
	// Termini is the static list of remote termini to discover and
	// keep synced.
	Termini []TerminusConfig `yaml:"termini"`
	// Logging configures the shared logger.
	Logging logging.Config `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxTermini:            8,
		MaxRecords:            4096,
		BlobCapacity:          64 * datasize.KB,
		TransferChunkSize:     256,
		ReassemblyBufSize:     4 * datasize.KB,
		ChangeEventMaxRecords: 4,
		ChangeEventMaxEntries: 16,
		Termini:               []TerminusConfig{},
		Logging: logging.Config{
			Level: zapcore.InfoLevel,
		},
	}
}

// LoadConfig loads configuration from a YAML file at the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	return cfg, nil
}
