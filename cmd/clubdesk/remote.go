package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/clubdesk/internal/credentials"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named servers and their tokens",
	GroupID: "system",
	// Remote subcommands only touch the remotes file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

func remotesStore() (*credentials.Store, error) {
	path, err := remotesPath()
	if err != nil {
		return nil, err
	}
	return credentials.NewStore(path), nil
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		token, _ := cmd.Flags().GetString("token")
		nats, _ := cmd.Flags().GetString("nats")
		desc, _ := cmd.Flags().GetString("description")

		s, err := remotesStore()
		if err != nil {
			return err
		}
		if err := s.Add(name, credentials.Remote{URL: url, Token: token, NATSURL: nats, Description: desc}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", name, url)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := remotesStore()
		if err != nil {
			return err
		}
		if err := s.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := remotesStore()
		if err != nil {
			return err
		}
		if err := s.Use(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remotes; the active one is starred",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := remotesStore()
		if err != nil {
			return err
		}
		f, err := s.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(f.Remotes) == 0 {
			fmt.Fprintln(out, "no remotes configured")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tTOKEN\tDESCRIPTION")
		for _, name := range f.Names() {
			r := f.Remotes[name]
			marker := "  "
			if name == f.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, r.URL, credentials.MaskToken(r.Token), r.Description)
		}
		return w.Flush()
	},
}

func init() {
	remoteAddCmd.Flags().String("token", "", "bearer token sent with every request")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for watch and mutation events")
	remoteAddCmd.Flags().String("description", "", "free-form note")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteUseCmd, remoteListCmd)
}
