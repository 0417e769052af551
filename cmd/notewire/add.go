package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/spf13/cobra"
)

var (
	addTitle   string
	addContent string
	addTags    []string
	addImages  []string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a note",
	Long: `Create a note on the server. When the server is unreachable the note
is kept locally under a temporary id and shows up in listings until it syncs.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if addTitle == "" {
			fmt.Println("Error: --title is required")
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
			Title:   addTitle,
			Content: addContent,
			Tags:    addTags,
		}
		for _, path := range addImages {
			img, err := inlineImage(path)
			if err != nil {
				fatal("Failed to attach image", err)
			}
			note.Images = append(note.Images, img)
		}

		created, err := client.Notes.Create(ctx, note)
		if err != nil {
			if created.ID.Local() && (errors.Is(err, core.ErrNetwork) || errors.Is(err, core.ErrTimeout)) {
				fmt.Printf("Server unreachable; note kept locally as %s\n", created.ID)
				return
			}
			fatal("Failed to create note", err)
		}

		fmt.Printf("Note %s created.\n", created.ID)
	},
}

func inlineImage(path string) (core.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Image{}, err
	}
	return core.Image{
		Data: base64.StdEncoding.EncodeToString(data),
		MIME: mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addTitle, "title", "", "Note title")
	addCmd.Flags().StringVar(&addContent, "content", "", "Note body (HTML or plain text)")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
	addCmd.Flags().StringSliceVar(&addImages, "image", nil, "Image file to attach inline (repeatable)")
	addCmd.MarkFlagRequired("title")
}
