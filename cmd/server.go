package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/chat"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/conversation"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/players"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the assessment server",
	Long:  `Starts the REST API for sessions and players, and the chat websocket at /ws/assessment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:           port,
			AllowAll:       a.cfg.Server.AllowAll,
			RequestTimeout: a.cfg.OracleTimeout() + a.cfg.ScenarioTimeout() + 30*time.Second,
		}, a.db, a.logger)

		registerAllRoutes(srv, a)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "footballer server %s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.db.Path())
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", a.cfg.Provider, a.cfg.Model)
		fmt.Fprintf(os.Stderr, "  Voice answers: %t\n", a.transcriber != nil)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// registerAllRoutes wires the feature routes onto the server.
func registerAllRoutes(srv *server.Server, a *app) {
	api := srv.API()

	// Sessions go first so /api/players/{id}/active-session is not
	// shadowed by the roster subrouter.
	assessment.RegisterRoutes(api, a.engine)
	players.RegisterRoutes(api, a.players)

	proc := conversation.NewProcessor(a.engine, a.logger.Named("conversation"))
	chat.New(proc, a.transcriber, a.cfg.TranscriptionTimeout(), a.logger.Named("chat")).RegisterRoutes(srv.Router())
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
