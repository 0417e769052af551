package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sachindrat2/notewire/pkg/notes"
	"github.com/spf13/cobra"
)

var (
	listJSON  bool
	filterTag string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, falling back to the local mirror when offline",
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

		result, err := client.Notes.FetchList(ctx)
		if err != nil {
			fatal("Failed to list notes", err)
		}
		if result.FromCache {
			// Advisory, not a blocking error: the cached list is still shown.
			fmt.Fprintln(os.Stderr, "note: showing cached notes (server unreachable)")
		}

		filtered := notes.FilterTag(result.Notes, filterTag)

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, n := range filtered {
			marker := ""
			if n.ID.Local() {
				marker = " (not yet synced)"
			}
			fmt.Printf("%s  %s%s\n", n.ID, n.Title, marker)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Filter notes by tag glob (e.g. 'work/**')")
}
