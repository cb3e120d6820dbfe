package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/screen"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

var tournamentLayout = tableLayout[model.Tournament]{
	noun: "tournaments",
	columns: []ui.Column{
		{Header: "ID"},
		{Header: "Name", Key: model.KeyName},
		{Header: "City", Key: model.KeyCity},
		{Header: "Club", Key: model.KeyClub},
		{Header: "Type", Key: model.KeyType},
		{Header: "Status", Key: model.KeyStatus},
		{Header: "Start", Key: model.KeyStart},
		{Header: "Players", Key: model.KeyParticipants},
	},
	row: func(t model.Tournament) []string {
		return []string{
			t.ID,
			ui.Truncate(t.Name, 40),
			t.City,
			ui.Truncate(t.ClubName, 24),
			string(t.Type),
			ui.RenderStatus(string(t.Status)),
			formatDate(t.StartDate),
			strconv.Itoa(t.Participants),
		}
	},
}

var tournamentsCmd = &cobra.Command{
	Use:     "tournaments",
	Aliases: []string{"tournament"},
	Short:   "List and remove tournaments",
	GroupID: "tables",
}

var tournamentsListOpts listOptions

var tournamentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tournaments (filtered and paged by the server)",
	Example: `  clubdesk tournaments list --filter type=RAPID,BLITZ --sort -start
  clubdesk tournaments list --filter start_from=2024-05-01 --filter start_to=2024-05-31`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := screen.Tournaments(consoleClient, location, cfg.PageSize, screen.WithLogger(logger))
		if err != nil {
			return err
		}
		return runList(cmd, s, &tournamentsListOpts, tournamentLayout)
	},
}

var tournamentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		given, _ := cmd.Flags().GetString("confirm")
		typed, err := confirmation(cmd, given, "Deleting tournament "+args[0], args[0])
		if err != nil {
			return err
		}
		return runMutation(cmd, screen.DeleteTournament(consoleClient, args[0], typed))
	},
}

func init() {
	tournamentsListOpts.register(tournamentsListCmd)
	tournamentsDeleteCmd.Flags().String("confirm", "", "the tournament ID, typed back to confirm")
	tournamentsCmd.AddCommand(tournamentsListCmd, tournamentsDeleteCmd)
}
