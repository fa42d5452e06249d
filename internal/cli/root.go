package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"portfolio-chat/internal/config"
)

type ctxKey string

const appKey ctxKey = "app"

// Execute builds the root command and runs it until it finishes or the
// process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the Cobra root command and wires dependencies.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "portfolio-chat",
		Short:         "Portfolio assistant: chat, projects and markdown rendering",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
			if err := config.Load(v); err != nil {
				return err
			}
			app, err := buildApp(cmd.Context(), config.FromViper(v), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			return app.Close(context.WithoutCancel(cmd.Context()))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (yaml|toml|json)")

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newPromptCmd())
	cmd.AddCommand(newSitesCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}

func getApp(cmd *cobra.Command) (*App, error) {
	app, ok := cmd.Context().Value(appKey).(*App)
	if !ok || app == nil {
		return nil, errors.New("internal error: app not initialized")
	}
	return app, nil
}
