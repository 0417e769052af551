package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/spf13/cobra"
)

var deleteID string

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if deleteID == "" {
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

		if err := client.Notes.Delete(ctx, core.NoteID(deleteID)); err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Printf("Note %s deleted.\n", deleteID)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringVar(&deleteID, "id", "", "Note id")
	deleteCmd.MarkFlagRequired("id")
}
