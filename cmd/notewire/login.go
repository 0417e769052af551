package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		if err != nil {
			fatal("Failed to initialize client", err)
		}
		defer client.Close()

		username, password, err := promptCredentials(loginUsername, loginPassword)
		if err != nil {
			fatal("Failed to read credentials", err)
		}

		sess, err := client.Session.Login(context.Background(), username, password)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrInvalidCredentials):
				fmt.Fprintln(os.Stderr, "Invalid username or password.")
			case errors.Is(err, core.ErrUserNotFound):
				fmt.Fprintln(os.Stderr, "No account with that username.")
			case errors.Is(err, core.ErrNetwork), errors.Is(err, core.ErrTimeout):
				fmt.Fprintln(os.Stderr, "Could not reach the server. Try again later.")
			default:
				fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
			}
			os.Exit(1)
		}

		fmt.Printf("Logged in as %s\n", displayName(sess, username))
	},
}

func promptCredentials(username, password string) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		username = strings.TrimSpace(line)
	}

	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", "", err
		}
		password = string(raw)
	}

	return username, password, nil
}

func displayName(sess *core.Session, fallback string) string {
	if sess != nil && sess.Subject != "" {
		return sess.Subject
	}
	return fallback
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted if omitted)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted if omitted)")
}
