package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"portfolio-chat/internal/portfolio"
	"portfolio-chat/internal/usecase"
)

func newProjectsCmd() *cobra.Command {
	var hash string
	cmd := &cobra.Command{
		Use:   "projects [id]",
		Short: "List project cards or show one project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case hash != "":
				detail, err := app.Projects.OpenFromHash(ctx, hash)
				if err != nil {
					return err
				}
				printDetail(out, detail)
			case len(args) == 1:
				detail, err := app.Projects.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				printDetail(out, detail)
			default:
				projects, err := app.Projects.ListProjects(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE\tHASH")
				for _, p := range projects {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Category, p.Title, portfolio.ProjectHash(p.ID))
				}
				return tw.Flush()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hash, "hash", "", "open the project named by a #project-<id> fragment")
	return cmd
}

func printDetail(w io.Writer, d usecase.ProjectDetail) {
	_, _ = fmt.Fprintf(w, "%s\n", d.Title)
	_, _ = fmt.Fprintf(w, "Category: %s\n", d.Category)
	_, _ = fmt.Fprintf(w, "\n%s\n\n", d.FullDesc)
	_, _ = fmt.Fprintf(w, "Impact: %s\n", d.Impact)
	_, _ = fmt.Fprintf(w, "Tech: %s\n", d.Tech)
	if d.URL != "" {
		_, _ = fmt.Fprintf(w, "Link: %s\n", d.URL)
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", d.InquiryBlurb)
	_, _ = fmt.Fprintf(w, "Inquire: %s\n", d.InquiryURL)
}
