package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"portfolio-chat/internal/markdown"
)

func newRenderCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render reply markdown to HTML (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			theme := markdown.DefaultTheme
			if plain {
				theme = markdown.Plain
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Render(string(raw)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "emit tags without styling classes")
	return cmd
}
