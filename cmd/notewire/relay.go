package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sachindrat2/notewire/internal/relay"
	"github.com/spf13/cobra"
)

var (
	relayListen   string
	relayUpstream string
	relayOrigins  []string
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the development CORS relay",
	Long: `Forward API requests to the upstream server while answering CORS
preflights locally. Only for development; the relay adds no auth of its own.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if relayUpstream == "" {
			fmt.Println("Error: --upstream is required")
			cmd.Usage()
			os.Exit(1)
		}

		r, err := relay.New(relay.Config{
			Upstream:       relayUpstream,
			AllowedOrigins: relayOrigins,
			Logger:         slog.Default(),
		})
		if err != nil {
			fatal("Failed to start relay", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := r.ListenAndServe(ctx, relayListen); err != nil {
			fatal("Relay stopped", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringVar(&relayListen, "listen", "127.0.0.1:8787", "Address to listen on")
	relayCmd.Flags().StringVar(&relayUpstream, "upstream", "", "Base URL of the real API")
	relayCmd.Flags().StringSliceVar(&relayOrigins, "origin", nil, "Allowed origin glob (repeatable; empty allows all)")
}
