// File: cmd/speeds.go
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/tapsolver/internal/config"
	"github.com/xkilldash9x/tapsolver/internal/speed"
)

func newSpeedsCmd(v *viper.Viper) *cobra.Command {
	show := func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(v)
		if err != nil {
			return err
		}
		writeSpeeds(cmd.OutOrStdout(), cfg.Speeds)
		return nil
	}

	speedsCmd := &cobra.Command{
		Use:   "speeds",
		Short: "Show or change the delay profile",
		Args:  cobra.NoArgs,
		RunE:  show,
	}
	speedsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the delay profile",
		Args:  cobra.NoArgs,
		RunE:  show,
	})

	speedsCmd.AddCommand(&cobra.Command{
		Use:   "set <kind> <ms>",
		Short: "Set one delay and save it to the config file",
		Long: fmt.Sprintf("Values are clamped to %d-%dms and rounded to the nearest %dms.",
			speed.MinMs, speed.MaxMs, speed.StepMs),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := speed.ParseKind(args[0])
			if err != nil {
				return err
			}
			ms, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delay %q: %w", args[1], err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}

			p := cfg.Speeds.With(kind, speed.Snap(ms))
			if err := persistSpeeds(v, p); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %dms\n", kind.Label(), p.Ms(kind))
			return err
		},
	})
	return speedsCmd
}
