package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askUser    string
	askProject string
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message and stream the reply to stdout",
	Long: `Runs a single conversation turn against the local database, exactly as
the chat endpoint would, and prints the reply as it is delivered.

Example:
  guide ask --user alice --project todo-api "how should I structure my handlers?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "owner id of the conversation")
	askCmd.Flags().StringVarP(&askProject, "project", "p", "", "project id (empty for a general conversation)")
}

// writerSink prints fragments as they arrive and ends the reply with a
// newline.
type writerSink struct {
	w io.Writer
}

func (s writerSink) Write(ctx context.Context, fragment string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, fragment)
	return err
}

func (s writerSink) Close() error {
	_, err := io.WriteString(s.w, "\n")
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	engine, err := newEngine(cmd.Context(), cfg, db)
	if err != nil {
		return err
	}

	var projectID *string
	if p := strings.TrimSpace(askProject); p != "" {
		projectID = &p
	}
	_, err = engine.ConverseStream(cmd.Context(), askUser, projectID, strings.Join(args, " "), writerSink{w: cmd.OutOrStdout()})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	return nil
}
