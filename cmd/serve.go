package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/cdgi-bus-assistant/server"
)

func newServeCmd() *cobra.Command {
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Twilio voice and WhatsApp webhooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := wireServe(ctx, serveOptions{probeModel: !skipProbe})
			if err != nil {
				return err
			}
			defer app.close()

			return server.Run(ctx, app.http, app.router)
		},
	}
	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "do not check the OpenAI model at startup")
	return cmd
}

