package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/screen"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

var userLayout = tableLayout[model.User]{
	noun: "users",
	columns: []ui.Column{
		{Header: "ID"},
		{Header: "Username", Key: model.KeyUsername},
		{Header: "Name", Key: model.KeyName},
		{Header: "Email", Key: model.KeyEmail},
		{Header: "Role", Key: model.KeyRole},
		{Header: "City", Key: model.KeyCity},
		{Header: "Rating", Key: model.KeyRating},
		{Header: "Registered", Key: model.KeyRegistered},
	},
	row: func(u model.User) []string {
		return []string{
			u.ID,
			u.Username,
			ui.Truncate(u.FullName, 32),
			u.Email,
			string(u.Role),
			u.City,
			strconv.Itoa(u.Rating),
			formatDate(u.RegisteredAt),
		}
	},
}

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "List and remove user accounts",
	GroupID: "tables",
}

var usersListOpts listOptions

var usersListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List users",
	Example: `  clubdesk users list --filter role=ORGANIZER --sort -rating`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := screen.Users(consoleClient, location, cfg.PageSize, screen.WithLogger(logger))
		if err != nil {
			return err
		}
		return runList(cmd, s, &usersListOpts, userLayout)
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		given, _ := cmd.Flags().GetString("confirm")
		typed, err := confirmation(cmd, given, "Deleting user "+args[0], args[0])
		if err != nil {
			return err
		}
		return runMutation(cmd, screen.DeleteUser(consoleClient, args[0], typed))
	},
}

func init() {
	usersListOpts.register(usersListCmd)
	usersDeleteCmd.Flags().String("confirm", "", "the user ID, typed back to confirm")
	usersCmd.AddCommand(usersListCmd, usersDeleteCmd)
}
