package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/screen"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

var clubLayout = tableLayout[model.Club]{
	noun: "clubs",
	columns: []ui.Column{
		{Header: "ID"},
		{Header: "Name", Key: model.KeyName},
		{Header: "City", Key: model.KeyCity},
		{Header: "Owner", Key: model.KeyOwner},
		{Header: "Status", Key: model.KeyStatus},
		{Header: "Members", Key: model.KeyMembers},
		{Header: "Created", Key: model.KeyCreated},
	},
	row: func(c model.Club) []string {
		return []string{
			c.ID,
			ui.Truncate(c.Name, 40),
			c.City,
			c.OwnerName,
			ui.RenderStatus(string(c.Status)),
			strconv.Itoa(c.Members),
			formatDate(c.CreatedAt),
		}
	},
}

var clubsCmd = &cobra.Command{
	Use:     "clubs",
	Short:   "List and moderate clubs",
	GroupID: "tables",
}

var clubsListOpts listOptions

var clubsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clubs",
	Example: `  clubdesk clubs list --filter status=PENDING
  clubdesk clubs list --filter city=Minsk,Gomel --sort -members
  clubdesk clubs list --filter created_from=2024-01-01 --export clubs.jsonl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := screen.Clubs(consoleClient, location, cfg.PageSize, screen.WithLogger(logger))
		if err != nil {
			return err
		}
		return runList(cmd, s, &clubsListOpts, clubLayout)
	},
}

var clubsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending club",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation(cmd, screen.ApproveClub(consoleClient, args[0]))
	},
}

var clubsRejectCmd = &cobra.Command{
	Use:   "reject <id> --reason <text>",
	Short: "Reject a pending club",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return runMutation(cmd, screen.RejectClub(consoleClient, args[0], reason))
	},
}

var clubsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a club's name, city or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var u model.ClubUpdate
		for flag, dst := range map[string]**string{
			"name":        &u.Name,
			"city":        &u.City,
			"description": &u.Description,
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*dst = &v
			}
		}
		return runMutation(cmd, screen.UpdateClub(consoleClient, args[0], u))
	},
}

var clubsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a club",
	Long: `Delete a club permanently.

The club ID must be typed back to confirm, either with --confirm or at the
prompt. Internal server errors are retried automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		given, _ := cmd.Flags().GetString("confirm")
		typed, err := confirmation(cmd, given, "Deleting club "+args[0], args[0])
		if err != nil {
			return err
		}
		return runMutation(cmd, screen.DeleteClub(consoleClient, args[0], typed))
	},
}

func init() {
	clubsListOpts.register(clubsListCmd)

	clubsRejectCmd.Flags().String("reason", "", "reason shown to the club owner (required)")

	clubsUpdateCmd.Flags().String("name", "", "new name")
	clubsUpdateCmd.Flags().String("city", "", "new city")
	clubsUpdateCmd.Flags().String("description", "", "new description")

	clubsDeleteCmd.Flags().String("confirm", "", "the club ID, typed back to confirm")

	clubsCmd.AddCommand(clubsListCmd, clubsApproveCmd, clubsRejectCmd, clubsUpdateCmd, clubsDeleteCmd)
}
