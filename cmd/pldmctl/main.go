// Command pldmctl is an operator-facing front end for a consolidated
// PDR repository: it can run the manager as a long-lived daemon
// (serve), or drive read-only/administrative operations against one
// spun up from the same configuration (info, list, sync).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openpldm/pdrd/internal/config"
	"github.com/openpldm/pdrd/internal/logging"
	"github.com/openpldm/pdrd/manager"
	"github.com/openpldm/pdrd/pdr"
	"github.com/openpldm/pdrd/transport"
)

// Cmd is the command line arguments shared by every subcommand.
type Cmd struct {
	// ConfigPath is the path to the configuration file (required).
	ConfigPath string
	// Fixture, when set, seeds every configured terminus with a small
	// canned set of PDRs so sync/list/info/serve can be exercised
	// end-to-end without a real MCTP transport.
	Fixture bool
}

var cmd Cmd

var rootCmd = &cobra.Command{
	Use:   "pldmctl",
	Short: "Operate a consolidated PLDM PDR repository",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.MarkPersistentFlagRequired("config")
	rootCmd.PersistentFlags().BoolVar(&cmd.Fixture, "fixture", false, "seed configured termini with a canned PDR fixture instead of a real transport")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a subcommand needs once the configuration has
// been loaded: the logger, the manager, and the termini it was told to
// track.
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
	mgr *manager.Manager
}

// newApp loads cmd.ConfigPath, builds the shared logger, and wires a
// Manager over a consolidated repository sized per configuration.
//
// No real MCTP transport ships with this module (transport.Transport
// is an external collaborator, spec §6 Non-goals), so every subcommand
// drives the manager against a transport.MockTransport. With --fixture,
// each configured terminus is seeded with a small canned PDR set via
// transport.SeedFixture so sync/list/info/serve can be exercised
// end-to-end without hardware; without it the mock starts empty and
// any sync attempt fails, which is the honest answer for a module that
// ships no production transport.
func newApp(cmd Cmd) (*app, error) {
	cfg, err := config.LoadConfig(cmd.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	repo := pdr.NewRepository(
		uint32(cfg.BlobCapacity.Bytes()),
		int(cfg.MaxRecords),
		pdr.WithLogger(log.Named("pdr")),
	)

	mock := transport.NewMockTransport()
	mgr := manager.NewManager(repo, mock,
		manager.WithLogger(log.Named("manager")),
		manager.WithMaxTermini(int(cfg.MaxTermini)),
		manager.WithReassemblyBufSize(int(cfg.ReassemblyBufSize.Bytes())),
	)

	for _, tc := range cfg.Termini {
		if _, err := mgr.AddTerminus(tc.EID, tc.TerminusHandle, tc.TID); err != nil {
			return nil, fmt.Errorf("register terminus eid=%d: %w", tc.EID, err)
		}
		if cmd.Fixture {
			seedDemoFixture(mock, tc.EID)
		}
	}

	return &app{cfg: cfg, log: log, mgr: mgr}, nil
}

// seedDemoFixture queues a small two-record fixture (a terminus
// locator and a numeric sensor PDR) for eid, enough to demonstrate a
// full bootstrap sync and the list/info CLI paths.
func seedDemoFixture(mock *transport.MockTransport, eid uint8) {
	locator := pdr.EncodeHeader(pdr.Header{RecordHandle: 10, HeaderVersion: pdr.HeaderVersion, PDRType: 1, DataLength: 1})
	locator = append(locator, byte(eid))

	sensor := pdr.EncodeHeader(pdr.Header{RecordHandle: 20, HeaderVersion: pdr.HeaderVersion, PDRType: 2, DataLength: 2})
	sensor = append(sensor, 0x00, 0x01)

	transport.SeedFixture(mock, eid, []transport.FixtureRecord{
		{Data: locator},
		{Data: sensor},
	}, uint32(eid)+0xF00D)
}
