// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/config"
	"github.com/xkilldash9x/tapsolver/internal/observability"
)

// configDirName is the per-user directory searched after the working directory.
const configDirName = ".tapsolver"

// newRootCmd builds the command tree around v. Tests pass a fresh viper so
// runs do not leak settings into each other.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "tapsolver",
		Short:         "Tapsolver answers tap, pair and choice challenges in a lesson tab.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(v, cfgFile); err != nil {
				return err
			}

			var cfg config.Config
			if err := v.Unmarshal(&cfg); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "tapsolver"})
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting tapsolver", zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml or ~/.tapsolver/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "tapsolver version %s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(v),
		newSpeedsCmd(v),
		newHistoryCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI with a signal-aware context and exits non-zero on failure.
func Execute(ctx context.Context) {
	err := newRootCmd(viper.New()).ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initializeConfig loads .env, defaults, the config file and TAPSOLVER_*
// environment overrides into v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	// .env only seeds the process environment; it is optional.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	config.SetDefaults(v)
	if err := config.BindEnv(v); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if dir, err := userConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// No config file; defaults and env vars apply.
		case cfgFile != "" && errors.Is(err, fs.ErrNotExist):
			// An explicit file that does not exist yet is created on first write.
		default:
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func userConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName), nil
}

// writeConfigKeys sets values in the config file v was read from (the
// explicit --config path, or ~/.tapsolver/config.yaml when none was found)
// and rewrites it. Only the file's own contents and values are written;
// defaults, environment overrides and flags bound to v stay out of it.
func writeConfigKeys(v *viper.Viper, values map[string]any) (string, error) {
	path := v.ConfigFileUsed()
	if path == "" {
		dir, err := userConfigDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	file := viper.New()
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read config %s: %w", path, err)
		}
	}
	for key, val := range values {
		file.Set(key, val)
		v.Set(key, val)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config %s: %w", path, err)
	}
	return path, nil
}
