package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts (admin only)",
}

// loggedInAdmin returns the app if an admin is logged in.
func loggedInAdmin(cmd *cobra.Command) (*app, error) {
	a, err := loggedIn(cmd)
	if err != nil {
		return nil, err
	}
	if !a.session.IsAdmin() {
		return nil, errors.New("this command requires an admin account")
	}
	return a, nil
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loggedInAdmin(cmd)
		if err != nil {
			return err
		}
		users, err := a.api.ListUsers(cmd.Context())
		if err != nil {
			return a.check(err)
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE") //nolint:errcheck
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role) //nolint:errcheck
		}
		return w.Flush()
	},
}

var usersCreateCmdFlags struct {
	Name     string
	Email    string
	Password string
	Admin    bool
}

var usersCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create an account",
	Example: `pictura users create --name Bob --email bob@example.com --password secret --admin`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loggedInAdmin(cmd)
		if err != nil {
			return err
		}
		reg := imagehost.Registration{
			Name:     strings.TrimSpace(usersCreateCmdFlags.Name),
			Email:    strings.TrimSpace(usersCreateCmdFlags.Email),
			Password: password(usersCreateCmdFlags.Password),
			Role:     imagehost.RoleUser,
		}
		if usersCreateCmdFlags.Admin {
			reg.Role = imagehost.RoleAdmin
		}

		if !a.session.Register(cmd.Context(), reg, true) {
			if a.session.User() == nil {
				return errors.New("session expired, run `pictura login` again")
			}
			return errors.New(a.session.Err())
		}

		msg := "User created successfully"
		if usersCreateCmdFlags.Admin {
			msg = "Admin created successfully"
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
		return err
	},
}

var usersUpdateCmdFlags struct {
	Name  string
	Email string
	Role  string
}

var usersUpdateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Change name, email or role of an account",
	Example: `pictura users update 42 --role admin`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		update := imagehost.UserUpdate{
			Name:  strings.TrimSpace(usersUpdateCmdFlags.Name),
			Email: strings.TrimSpace(usersUpdateCmdFlags.Email),
			Role:  imagehost.Role(usersUpdateCmdFlags.Role),
		}
		if update.Role != "" && update.Role != imagehost.RoleUser && update.Role != imagehost.RoleAdmin {
			return fmt.Errorf("invalid role %q, use user or admin", update.Role)
		}

		a, err := loggedInAdmin(cmd)
		if err != nil {
			return err
		}
		if err := a.api.UpdateUser(cmd.Context(), id, update); err != nil {
			return a.check(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "User updated successfully")
		return err
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loggedInAdmin(cmd)
		if err != nil {
			return err
		}
		if err := a.api.DeleteUser(cmd.Context(), id); err != nil {
			return a.check(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "User deleted successfully")
		return err
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&usersCreateCmdFlags.Name, "name", "", "Display name")
	usersCreateCmd.Flags().StringVarP(&usersCreateCmdFlags.Email, "email", "e", "", "Email address")
	usersCreateCmd.Flags().StringVarP(&usersCreateCmdFlags.Password, "password", "p", "", "Password (default: $PICTURA_PASSWORD)")
	usersCreateCmd.Flags().BoolVar(&usersCreateCmdFlags.Admin, "admin", false, "Create an admin account")
	_ = usersCreateCmd.MarkFlagRequired("email")

	usersUpdateCmd.Flags().StringVar(&usersUpdateCmdFlags.Name, "name", "", "New display name")
	usersUpdateCmd.Flags().StringVarP(&usersUpdateCmdFlags.Email, "email", "e", "", "New email address")
	usersUpdateCmd.Flags().StringVar(&usersUpdateCmdFlags.Role, "role", "", "New role (user or admin)")

	usersCmd.AddCommand(usersListCmd, usersCreateCmd, usersUpdateCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}
