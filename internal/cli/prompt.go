package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"portfolio-chat/internal/portfolio"
)

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the system instruction sent with every turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			instruction, err := app.Site.SystemInstruction(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), instruction)
			return nil
		},
	}
}

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the built-in site variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			for _, id := range portfolio.SiteIDs() {
				marker := " "
				if id == app.Config.Site {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id)
			}
			return nil
		},
	}
}
