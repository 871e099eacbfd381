package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEnvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the resolved configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			masked := *a.cfg
			masked.Remote.Username = maskSecret(masked.Remote.Username)
			masked.Remote.AccessKey = maskSecret(masked.Remote.AccessKey)

			data, err := yaml.Marshal(&masked)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// maskSecret keeps at most two leading characters of a credential.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", 4)
}
