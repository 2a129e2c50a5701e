package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/players"
)

var (
	playerName     string
	playerPosition string
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Manage the player roster",
}

var playersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a player",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.players.Create(cmd.Context(), players.Player{Name: playerName, Position: playerPosition})
		if err != nil {
			return err
		}
		fmt.Printf("Added player %d: %s\n", p.ID, p.Name)
		return nil
	},
}

var playersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered players",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		roster, err := a.players.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			fmt.Println("No players registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPOSITION")
		for _, p := range roster {
			fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Name, p.Position)
		}
		return w.Flush()
	},
}

func init() {
	playersAddCmd.Flags().StringVar(&playerName, "name", "", "player's full name")
	playersAddCmd.Flags().StringVar(&playerPosition, "position", "", "playing position, used to tailor situations")
	playersAddCmd.MarkFlagRequired("name")

	playersCmd.AddCommand(playersAddCmd, playersListCmd)
	rootCmd.AddCommand(playersCmd)
}
