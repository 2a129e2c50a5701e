package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/traits"
)

var (
	resultsSession string
	resultsPlayer  int64
	resultsJSON    bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the trait profile of a completed session",
	Long:  `Shows the results of one session, or with --player lists that player's sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if resultsPlayer > 0 {
			return listSessions(ctx, a, resultsPlayer)
		}
		if resultsSession == "" {
			return fmt.Errorf("either --session or --player is required")
		}

		sess, err := a.sessions.GetSession(ctx, resultsSession)
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("%w: %s", assessment.ErrSessionNotFound, resultsSession)
		}
		if sess.Status != assessment.StatusCompleted {
			return fmt.Errorf("session %s is %s, results exist only for completed sessions", sess.ID, sess.Status)
		}

		results, err := a.sessions.GetResults(ctx, sess.ID)
		if err != nil {
			return err
		}

		if resultsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		catalog := traits.Default()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TRAIT\tSCORE\tSTRENGTH")
		for _, r := range results {
			name := r.TraitCode
			if t, ok := catalog.Lookup(r.TraitCode); ok {
				name = t.Name
			}
			fmt.Fprintf(w, "%s\t%.1f\t%s\n", name, r.FinalScore, r.Strength)
		}
		return w.Flush()
	},
}

func listSessions(ctx context.Context, a *app, playerID int64) error {
	sessions, err := a.sessions.ListSessions(ctx, playerID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Printf("Player %d has no sessions.\n", playerID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATUS\tSITUATIONS\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Status, s.SituationIndex, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func init() {
	resultsCmd.Flags().StringVar(&resultsSession, "session", "", "session ID")
	resultsCmd.Flags().Int64Var(&resultsPlayer, "player", 0, "list the sessions of this player instead")
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(resultsCmd)
}
