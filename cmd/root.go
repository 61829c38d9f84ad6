package cmd

import (
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/cdgi-bus-assistant/pkg/config"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "busbot",
		Short:         "CDGI bus route assistant",
		Long:          "busbot answers student questions about college bus routes over Twilio voice calls and WhatsApp.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configx.SetEnvFile(envFile)
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			logx.Init(*logCfg)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file (defaults to ./.env when present)")

	rootCmd.AddCommand(
		newServeCmd(),
		newLookupCmd(),
	)

	return rootCmd
}
