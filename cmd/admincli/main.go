// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/autodj/internal/api/connect"
	"github.com/osa030/autodj/internal/app/notification"
)

var (
	app    = kingpin.New("autodj-admincli", "autodj admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// sessions command
	sessionsCmd = app.Command("sessions", "List guild sessions").Alias("list")

	// queue command
	queueCmd   = app.Command("queue", "Show a guild's queue")
	queueGuild = queueCmd.Arg("guild-id", "Guild ID").Required().String()

	// skip command
	skipCmd   = app.Command("skip", "Skip the current track of a guild")
	skipGuild = skipCmd.Arg("guild-id", "Guild ID").Required().String()

	// watch command
	watchCmd = app.Command("watch", "Stream playback events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Admin commands need a token
	if command != queueCmd.FullCommand() && *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	// Execute command
	switch command {
	case sessionsCmd.FullCommand():
		listSessions(ctx, client)
	case queueCmd.FullCommand():
		showQueue(ctx, client, *queueGuild)
	case skipCmd.FullCommand():
		skip(ctx, client, *skipGuild)
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func listSessions(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.ListSessions(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== SESSIONS (%d) ===\n", len(resp.Sessions))
	fmt.Printf("Workers: running=%d pending=%d\n", resp.WorkersRunning, resp.WorkersPending)
	for _, s := range resp.Sessions {
		fmt.Printf("\nGuild: %s\n", s.GuildID)
		fmt.Printf("  Session ID: %s\n", s.SessionID)
		fmt.Printf("  State: %s\n", s.State)
		if s.NowPlaying != nil {
			fmt.Printf("  Now Playing: %s (%s)\n", s.NowPlaying.Title, s.NowPlaying.Type)
		}
		fmt.Printf("  Queue: user=%d autoplaylist=%d\n", s.Stats.Regular, s.Stats.Autoplaylist)
		fmt.Printf("  Autoplaylist: store=%d buffer=%d\n", s.Stats.Store, s.Stats.Buffer)
	}
	fmt.Println()
}

func showQueue(ctx context.Context, client *apiconnect.Client, guildID string) {
	resp, err := client.GetQueue(ctx, guildID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	s := resp.Session
	if s.NowPlaying != nil {
		fmt.Printf("Now Playing: %s\n  URL: %s\n", s.NowPlaying.Title, s.NowPlaying.URL)
		if s.StartedAt != nil {
			fmt.Printf("  Started: %s\n", s.StartedAt.Format(time.RFC3339))
		}
	} else {
		fmt.Println("No track currently playing")
	}

	if len(s.Queue) == 0 {
		fmt.Println("Queue is empty")
		return
	}
	fmt.Println("\nUp Next:")
	for i, title := range s.Queue {
		fmt.Printf("  %2d. %s\n", i+1, title)
	}
}

func skip(ctx context.Context, client *apiconnect.Client, guildID string) {
	resp, err := client.Skip(ctx, guildID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Success {
		fmt.Printf("Track skipped: %s\n", resp.Title)
	} else {
		fmt.Printf("Failed: %s\n", resp.Message)
	}
}

func watch(ctx context.Context, client *apiconnect.Client) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := client.WatchEvents(ctx, func(n *notification.Notification) {
		line := fmt.Sprintf("[%d] %s %s guild=%s %s", n.SequenceNo, n.Time.Format(time.TimeOnly), n.Type, n.GuildID, n.Title)
		if n.Error != "" {
			line += " error=" + n.Error
		}
		fmt.Println(line)
	})
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
