package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/conversation"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/progress"
)

var (
	takePlayer   int64
	takeLanguage string
)

var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take the assessment in the terminal",
	Long: `Runs an assessment session for one player in the terminal. An unfinished
session is resumed. Type /status to see progress or /abandon to give up;
Ctrl+C pauses the session so it can be resumed later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if takePlayer <= 0 {
			return fmt.Errorf("--player is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		player, err := a.players.GetByID(ctx, takePlayer)
		if err != nil {
			return err
		}
		if player == nil {
			return fmt.Errorf("player %d not found; add one with `footballer players add`", takePlayer)
		}
		fmt.Printf("Assessment for %s (%s)\n\n", player.Name, player.Position)

		proc := conversation.NewProcessor(a.engine, a.logger.Named("conversation"))
		reporter := progress.NewReporter(os.Stderr)
		reporter.Start(a.cfg.Assessment.MaxSituations)

		msg := conversation.IncomingMessage{
			PlayerID: takePlayer,
			Command:  conversation.CommandStart,
			Language: takeLanguage,
		}
		for {
			out, err := proc.HandleMessage(ctx, msg)
			if err != nil {
				return err
			}
			if out.Progress != nil {
				reporter.Update(out.Progress.Index, fmt.Sprintf("situation %d", out.Progress.Index+1))
			}
			printReply(out)

			switch {
			case out.Type == conversation.ReplyResults:
				reporter.Finish()
				return nil
			case out.Type == conversation.ReplyError && out.SessionID == "":
				return errors.New(out.Content)
			case out.Type == conversation.ReplyStatus && msg.Command == conversation.CommandAbandon:
				return nil
			case out.Type == conversation.ReplyRetry:
				if !confirm("Try again") {
					fmt.Println("Session paused. Run take again to resume.")
					return nil
				}
				continue
			}

			text, err := (&promptui.Prompt{Label: "Your answer", Validate: notBlank}).Run()
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Println("Session paused. Run take again to resume.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading answer: %w", err)
			}
			msg = answerMessage(takePlayer, text)
		}
	},
}

// answerMessage maps slash commands to conversation commands; anything
// else is an answer.
func answerMessage(playerID int64, text string) conversation.IncomingMessage {
	msg := conversation.IncomingMessage{PlayerID: playerID, Command: conversation.CommandAnswer, Text: text}
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "/status":
		msg.Command, msg.Text = conversation.CommandStatus, ""
	case "/abandon":
		msg.Command, msg.Text = conversation.CommandAbandon, ""
	}
	return msg
}

func printReply(out *conversation.OutgoingMessage) {
	switch out.Type {
	case conversation.ReplyClarification:
		fmt.Printf("\nFollow-up:\n%s\n\n", out.Content)
	case conversation.ReplyRetry, conversation.ReplyError:
		fmt.Fprintf(os.Stderr, "\n%s\n\n", out.Content)
	default:
		fmt.Printf("\n%s\n\n", out.Content)
	}
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("please type an answer")
	}
	return nil
}

func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true, Default: "y"}).Run()
	return err == nil
}

func init() {
	takeCmd.Flags().Int64Var(&takePlayer, "player", 0, "ID of the player taking the assessment")
	takeCmd.Flags().StringVar(&takeLanguage, "language", "", "language for a new session (defaults to config)")
	rootCmd.AddCommand(takeCmd)
}
