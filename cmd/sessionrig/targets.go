package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionrig/pkg/capabilities"
	"github.com/entrhq/sessionrig/pkg/logging"
)

func newTargetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the targets supported in the configured mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Targets (%s)", a.cfg.Mode)))

			for _, name := range capabilities.Names(a.cfg.Mode) {
				target, err := capabilities.Resolve(name, a.cfg.Mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-16s %s\n", name, mutedStyle.Render(describeTarget(target)))
			}
			return nil
		},
	}
}

func describeTarget(t capabilities.Target) string {
	switch {
	case t.Device != nil:
		return fmt.Sprintf("%s on %s %s", t.Engine, t.Device.Name, t.Device.OSVersion)
	case t.EmulateMobile:
		return fmt.Sprintf("%s, mobile emulation", t.Engine)
	default:
		return fmt.Sprintf("%s, %s", t.Engine, t.Platform)
	}
}

func newCapabilitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities [target]",
		Short: "Print the negotiated capability descriptor for a target",
		Long: `Capabilities prints the descriptor that would be sent to the remote
provider for the target (the configured target when omitted). Credentials are
never part of the descriptor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Target
			if len(args) == 1 {
				name = args[0]
			}

			opts := capabilities.OptionsFromConfig(a.cfg, logging.RunID())
			target, desc, err := capabilities.Negotiate(name, a.cfg.Mode, opts)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(struct {
				Target       string                  `json:"target"`
				Platform     capabilities.Platform   `json:"platform"`
				Engine       capabilities.Engine     `json:"engine"`
				Remote       bool                    `json:"remote"`
				Capabilities capabilities.Descriptor `json:"capabilities"`
			}{
				Target:       target.Name,
				Platform:     target.Platform,
				Engine:       target.Engine,
				Remote:       target.Remote,
				Capabilities: desc,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode descriptor: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
