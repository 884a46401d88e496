package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/state"
	"github.com/spf13/cobra"
)

var (
	username string
	password string

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Log in to the wiki and store the access token",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the access token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user and their permissions",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
)

func init() {
	loginCmd.Flags().StringVarP(&username, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password, read from standard input if not given")
	_ = loginCmd.MarkFlagRequired("username")
}

// withState runs f on a freshly opened state, closing it afterwards.
func withState(f func(st *state.State) error) (err error) {
	st, err := state.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()
	return f(st)
}

func runLogin(cmd *cobra.Command, args []string) error {
	pw := password
	if pw == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		pw = strings.TrimRight(line, "\r\n")
	}

	return withState(func(st *state.State) error {
		res, err := st.Service.Login(cmd.Context(), domain.Credentials{Username: username, Password: pw})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", res.Username)
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withState(func(st *state.State) error {
		if err := st.Service.Logout(cmd.Context()); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "The access token was removed, but the wiki could not be told.")
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return withState(func(st *state.State) error {
		s := st.Session.Refresh(cmd.Context())
		out := cmd.OutOrStdout()
		if !s.IsAuthenticated {
			fmt.Fprintln(out, "Not logged in.")
			return nil
		}
		fmt.Fprintf(out, "%s (%s)\n", s.User.Username, s.User.Role)

		var perms []string
		for _, p := range []domain.Permission{domain.CanEdit, domain.CanDelete, domain.CanModerate, domain.BypassTagRestrictions} {
			if s.Permissions.Has(p) {
				perms = append(perms, string(p))
			}
		}
		if len(perms) == 0 {
			perms = append(perms, "none")
		}
		fmt.Fprintf(out, "permissions: %s\n", strings.Join(perms, ", "))
		return nil
	})
}
