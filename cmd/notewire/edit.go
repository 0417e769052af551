package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/spf13/cobra"
)

var (
	editID      string
	editTitle   string
	editContent string
	editTags    []string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Update a note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if editID == "" {
			fmt.Println("Error: --id is required")
			cmd.Usage()
			os.Exit(1)
		}

		client, err := newClient()
		if err != nil {
			fatal("Failed to initialize client", err)
		}
		defer client.Close()

		ctx := context.Background()
		if err := client.Session.Bootstrap(ctx); err != nil {
			fatal("Failed to read session", err)
		}

		note := core.Note{
			ID:      core.NoteID(editID),
			Title:   editTitle,
			Content: editContent,
			Tags:    editTags,
		}
		updated, err := client.Notes.Update(ctx, note)
		if err != nil {
			fatal("Failed to update note", err)
		}

		if updated.ID.Local() {
			fmt.Printf("Note %s updated locally (not yet synced).\n", updated.ID)
			return
		}
		fmt.Printf("Note %s updated.\n", updated.ID)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editID, "id", "", "Note id")
	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editContent, "content", "", "New body")
	editCmd.Flags().StringSliceVar(&editTags, "tag", nil, "New tags (repeatable, replaces existing)")
	editCmd.MarkFlagRequired("id")
}
