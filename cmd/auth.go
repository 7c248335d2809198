package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/spf13/cobra"
)

var loginCmdFlags struct {
	Email    string
	Password string
	Admin    bool
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the image hosting API",
	Long:  `Log in and keep the token in the token file for the other commands.`,
	Example: `pictura login --email me@example.com --password secret
PICTURA_PASSWORD=secret pictura login --email admin@example.com --admin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		if !a.session.Login(cmd.Context(), loginCmdFlags.Email, password(loginCmdFlags.Password), loginCmdFlags.Admin) {
			return errors.New(a.session.Err())
		}
		user := a.session.User()
		log.Debug("Stored token", "file", a.tokens.Path())
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.DisplayName(), user.Role)
		return err
	},
}

var registerCmdFlags struct {
	Name     string
	Email    string
	Password string
}

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create an account and log in as it",
	Example: `pictura register --name Alice --email alice@example.com --password secret`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		reg := imagehost.Registration{
			Name:     strings.TrimSpace(registerCmdFlags.Name),
			Email:    strings.TrimSpace(registerCmdFlags.Email),
			Password: password(registerCmdFlags.Password),
		}
		if !a.session.Register(cmd.Context(), reg, false) {
			return errors.New(a.session.Err())
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", a.session.User().DisplayName())
		return err
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.session.Logout(); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return err
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		user := a.session.User()
		rows := [][2]string{
			{"ID", strconv.FormatUint(user.ID, 10)},
			{"Name", user.Name},
			{"Email", user.Email},
			{"Role", string(user.Role)},
			{"API", a.api.BaseURL()},
			{"Token file", a.tokens.Path()},
		}
		w := newTable(cmd.OutOrStdout())
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1]); err != nil {
				return err
			}
		}
		return w.Flush()
	},
}

// password falls back to PICTURA_PASSWORD so it does not end up in the shell history.
func password(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("PICTURA_PASSWORD")
}

func init() {
	loginCmd.Flags().StringVarP(&loginCmdFlags.Email, "email", "e", "", "Email address")
	loginCmd.Flags().StringVarP(&loginCmdFlags.Password, "password", "p", "", "Password (default: $PICTURA_PASSWORD)")
	loginCmd.Flags().BoolVar(&loginCmdFlags.Admin, "admin", false, "Use the admin login")
	_ = loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().StringVar(&registerCmdFlags.Name, "name", "", "Display name")
	registerCmd.Flags().StringVarP(&registerCmdFlags.Email, "email", "e", "", "Email address")
	registerCmd.Flags().StringVarP(&registerCmdFlags.Password, "password", "p", "", "Password (default: $PICTURA_PASSWORD)")
	_ = registerCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
