package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sachindrat2/notewire/pkg/session"
	"github.com/spf13/cobra"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			fatal("Failed to initialize client", err)
		}
		defer client.Close()

		ctx := context.Background()
		if err := client.Session.Bootstrap(ctx); err != nil {
			fatal("Failed to read session", err)
		}

		printStatus(client.Session)

		if !statusWatch {
			return
		}

		store := client.SessionFile()
		if store == nil {
			fatal("Cannot watch", fmt.Errorf("a custom session store is in use"))
		}

		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		events, err := session.WatchStore(watchCtx, store, slog.Default())
		if err != nil {
			fatal("Failed to watch session", err)
		}
		for ev := range events {
			switch ev.Type {
			case session.EventSignedIn:
				who := ev.Subject
				if who == "" {
					who = "(opaque token)"
				}
				fmt.Printf("%s signed in: %s\n", ev.At.Format(time.TimeOnly), who)
			case session.EventSignedOut:
				fmt.Printf("%s signed out\n", ev.At.Format(time.TimeOnly))
			}
		}
	},
}

func printStatus(mgr *session.Manager) {
	sess := mgr.Current()
	fmt.Printf("State: %s\n", mgr.State())
	if sess == nil {
		return
	}
	if sess.Subject != "" {
		fmt.Printf("User:  %s\n", sess.Subject)
	}
	// Advisory only. The server's next 401 is the real check.
	switch {
	case sess.ExpiresAt.IsZero():
		fmt.Println("Token: expiry unknown")
	case time.Now().After(sess.ExpiresAt):
		fmt.Println("Token: past its exp claim (will refresh on next use)")
	default:
		fmt.Printf("Token: expires in %s\n", time.Until(sess.ExpiresAt).Round(time.Second))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep running and report session changes")
}
