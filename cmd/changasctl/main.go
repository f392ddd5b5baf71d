// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

// Command changasctl is a small terminal client for the Changas API.
//
// It exercises the SDK end-to-end against a running server: login persists
// the session marker under the user's config directory, whoami verifies the
// cookie-backed session, logout tears it down.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/changas-app/changas/client"
	"github.com/changas-app/changas/client/session"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "changasctl",
		Short:         "Terminal client for the Changas marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newLoginCommand())
	root.AddCommand(newWhoamiCommand())
	root.AddCommand(newLogoutCommand())
	root.AddCommand(newRegisterCommand())

	return root
}

// buildController wires the SDK pieces the way an embedding app would.
func buildController() (*session.Controller, error) {
	api, err := client.New()
	if err != nil {
		return nil, err
	}

	storePath, err := session.DefaultStorePath()
	if err != nil {
		return nil, err
	}

	controller := session.NewController(api, session.NewFileStore(storePath),
		session.WithForcedLogoutHandler(func() {
			fmt.Fprintln(os.Stderr, "Session expired. Please log in again.")
		}),
	)

	return controller, nil
}

func newLoginCommand() *cobra.Command {
	var email, password string

	command := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session marker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			controller, err := buildController()
			if err != nil {
				return err
			}

			if err := controller.Login(cmd.Context(), client.Credentials{
				Email:    email,
				Password: password,
			}); err != nil {
				return fmt.Errorf("login failed: %s", client.ErrorMessage(err))
			}

			state := controller.State()
			fmt.Printf("Logged in as %s (%s)\n", state.User.DisplayName, state.User.Email)
			return nil
		},
	}

	command.Flags().StringVarP(&email, "email", "e", "", "account email")
	command.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = command.MarkFlagRequired("email")
	_ = command.MarkFlagRequired("password")

	return command
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session's user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			controller, err := buildController()
			if err != nil {
				return err
			}

			controller.Initialize(cmd.Context())
			state := controller.State()

			if !state.IsAuthenticated || state.User == nil {
				return fmt.Errorf("not logged in")
			}

			user := state.User
			fmt.Printf("%s <%s>\n", user.DisplayName, user.Email)
			fmt.Printf("  type:     %s\n", user.TipoUsuario)
			fmt.Printf("  verified: %v\n", user.IsVerified)
			if user.Location != "" {
				fmt.Printf("  location: %s\n", user.Location)
			}
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			controller, err := buildController()
			if err != nil {
				return err
			}

			controller.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newRegisterCommand() *cobra.Command {
	var email, password, name, tipo string

	command := &cobra.Command{
		Use:   "register",
		Short: "Create a new account (does not log in)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			controller, err := buildController()
			if err != nil {
				return err
			}

			user, err := controller.Register(cmd.Context(), client.Registration{
				Email:       email,
				Password:    password,
				DisplayName: name,
				TipoUsuario: tipo,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %s", client.ErrorMessage(err))
			}

			fmt.Printf("Account created: %s. Run 'changasctl login' to sign in.\n", user.Email)
			return nil
		},
	}

	command.Flags().StringVarP(&email, "email", "e", "", "account email")
	command.Flags().StringVarP(&password, "password", "p", "", "account password")
	command.Flags().StringVarP(&name, "name", "n", "", "display name")
	command.Flags().StringVarP(&tipo, "tipo", "t", "cliente", "account type (cliente|trabajador)")
	_ = command.MarkFlagRequired("email")
	_ = command.MarkFlagRequired("password")
	_ = command.MarkFlagRequired("name")

	return command
}
