package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/usecase"
)

const chatPrompt = "you> "

func newChatCmd() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the portfolio assistant",
		Long:  "Chat with the portfolio assistant. With a message argument a single turn runs; otherwise lines are read until EOF or /quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			svc, err := app.ChatService()
			if err != nil {
				return err
			}
			r := &repl{svc: svc, out: cmd.OutOrStdout(), html: asHTML}
			if len(args) > 0 {
				return r.turn(cmd.Context(), strings.Join(args, " "))
			}
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "print replies as rendered HTML")
	return cmd
}

type repl struct {
	svc       *usecase.ChatService
	out       io.Writer
	html      bool
	sessionID string
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(r.out, chatPrompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := r.turn(ctx, line); err != nil {
			ucErr, ok := usecase.AsError(err)
			if !ok || ucErr.Internal() {
				return err
			}
			_, _ = fmt.Fprintf(r.out, "! %s\n", ucErr.Reason)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r *repl) turn(ctx context.Context, text string) error {
	out, err := r.svc.SubmitTurn(ctx, usecase.TurnInput{SessionID: r.sessionID, Text: text})
	if err != nil {
		return err
	}
	if out.SessionID != "" {
		r.sessionID = out.SessionID
	}
	for _, msg := range out.Appended {
		if msg.Role != domain.RoleAssistant {
			continue
		}
		body := msg.Text
		if r.html {
			body = msg.HTML
		}
		_, _ = fmt.Fprintf(r.out, "assistant> %s\n", body)
	}
	return nil
}
