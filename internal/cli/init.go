package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/nutrihub/internal/paths"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// configFile is the layout of config.yaml.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	SyncStrategy string `yaml:"sync_strategy,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the nutrihub store",
		Long: "Create the configuration directory with a default config.yaml, then create\n" +
			"the data directory and its JSONL files.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return sysError(fmt.Errorf("create config directory: %w", err))
			}

			var dataDir string
			if a.dataDir != "" {
				abs, err := filepath.Abs(a.dataDir)
				if err != nil {
					return sysError(fmt.Errorf("resolve data dir: %w", err))
				}
				dataDir = abs
			}

			configPath := filepath.Join(a.configDir, paths.ConfigFileName)
			cfg := configFile{
				Backend:      a.config.GetString(cfgKeyBackend),
				DataDir:      dataDir,
				SyncStrategy: a.config.GetString(cfgKeySyncStrategy),
				LogLevel:     a.config.GetString(cfgKeyLogLevel),
			}
			if err := writeConfigIfMissing(configPath, cfg); err != nil {
				return sysError(fmt.Errorf("write config: %w", err))
			}

			if _, err := a.repository(); err != nil {
				return err
			}
			a.log.Info("initialized", "config", configPath)
			fmt.Fprintln(cmd.OutOrStdout(), "nutrihub initialized")
			return nil
		},
	}
}

// writeConfigIfMissing writes cfg to path unless a file is already there.
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if cfg.Backend == "" {
		cfg.Backend = types.BackendSQLite
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
