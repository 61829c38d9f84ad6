package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	toolx "github.com/tanpawarit/cdgi-bus-assistant/agent/tool"
	configx "github.com/tanpawarit/cdgi-bus-assistant/pkg/config"
	"github.com/tanpawarit/cdgi-bus-assistant/route"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <stop name>",
		Short: "Run find_bus_for_stop once and print the tool output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configx.New[route.Config]("ROUTES")
			if err != nil {
				return err
			}

			registry, err := toolx.BuildDefault(ctx, route.Open(ctx, *cfg))
			if err != nil {
				return err
			}
			findBus, ok := registry.Lookup(toolx.ToolFindBusForStop)
			if !ok {
				return fmt.Errorf("tool %s is not registered", toolx.ToolFindBusForStop)
			}

			argsJSON, err := json.Marshal(toolx.FindBusForStopInput{StopName: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			out, err := findBus.InvokableRun(ctx, string(argsJSON))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}
