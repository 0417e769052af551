package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/spf13/cobra"
)

var (
	registerUsername string
	registerPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			fatal("Failed to initialize client", err)
		}
		defer client.Close()

		username, password, err := promptCredentials(registerUsername, registerPassword)
		if err != nil {
			fatal("Failed to read credentials", err)
		}

		sess, err := client.Session.Register(context.Background(), username, password)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrConflict):
				fmt.Fprintln(os.Stderr, "That username is already registered.")
			case errors.Is(err, core.ErrInvalidCredentials):
				fmt.Fprintln(os.Stderr, "The server rejected the username or password.")
			case errors.Is(err, core.ErrNetwork), errors.Is(err, core.ErrTimeout):
				fmt.Fprintln(os.Stderr, "Could not reach the server. Try again later.")
			default:
				fmt.Fprintf(os.Stderr, "Registration failed: %v\n", err)
			}
			os.Exit(1)
		}

		fmt.Printf("Registered and logged in as %s\n", displayName(sess, username))
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username (prompted if omitted)")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Password (prompted if omitted)")
}
