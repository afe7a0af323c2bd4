package cli

import (
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after layering defaults, the --config file,
DAJEUM_* environment variables and flags. The output is valid YAML and can
be used as a starting config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := rootOpts.formatter(cmd)
			if out.JSON() {
				return out.Success(cfg)
			}
			buf, err := cfg.YAML()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render config", err)
			}
			_, err = out.Writer.Write(buf)
			return err
		},
	}
}
