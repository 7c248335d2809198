package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Edit your profile",
}

var profileUpdateCmdFlags struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

var profileUpdateCmd = &cobra.Command{
	Use:     "update",
	Short:   "Change name, email or password",
	Example: `pictura profile update --name "Alice B."`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		update := imagehost.ProfileUpdate{
			Name:     strings.TrimSpace(profileUpdateCmdFlags.Name),
			Email:    strings.TrimSpace(profileUpdateCmdFlags.Email),
			Password: profileUpdateCmdFlags.Password,
		}
		if update.Password != profileUpdateCmdFlags.Confirm {
			return errors.New("passwords do not match")
		}

		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		if err := a.api.UpdateProfile(cmd.Context(), update); err != nil {
			return a.check(err)
		}
		refresh(cmd, a)
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Profile updated successfully")
		return err
	},
}

var profilePictureCmd = &cobra.Command{
	Use:   "picture <file>",
	Short: "Upload a new profile picture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		upload, closeFn, err := openUpload(args[0])
		if err != nil {
			return err
		}
		defer closeFn() //nolint:errcheck

		if err := a.api.UpdateProfilePicture(cmd.Context(), upload); err != nil {
			return a.check(err)
		}
		refresh(cmd, a)
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Profile picture updated successfully")
		return err
	},
}

func refresh(cmd *cobra.Command, a *app) {
	if err := a.session.Refresh(cmd.Context()); err != nil {
		log.Warn("Failed to reload profile", "error", err)
		return
	}
	log.Debug("Profile reloaded", "name", a.session.User().DisplayName())
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileUpdateCmdFlags.Name, "name", "", "New display name")
	profileUpdateCmd.Flags().StringVarP(&profileUpdateCmdFlags.Email, "email", "e", "", "New email address")
	profileUpdateCmd.Flags().StringVarP(&profileUpdateCmdFlags.Password, "password", "p", "", "New password")
	profileUpdateCmd.Flags().StringVar(&profileUpdateCmdFlags.Confirm, "confirm-password", "", "Repeat the new password")

	profileCmd.AddCommand(profileUpdateCmd, profilePictureCmd)
	rootCmd.AddCommand(profileCmd)
}
