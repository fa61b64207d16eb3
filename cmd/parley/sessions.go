package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/session"
	"github.com/spf13/cobra"
)

var (
	cleanOlderThan time.Duration
	cleanPattern   string
	cleanDryRun    bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persisted chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List persisted sessions, most recently used first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		infos, err := store.List(pattern)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("no sessions found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTITLE\tTURNS\tLAST USED")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				info.Name, info.Title, info.TurnCount,
				time.Unix(info.LastAccessed, 0).Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a persisted session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if !store.Exists(args[0]) {
			return errors.New("session '%s' does not exist", args[0])
		}
		if err := store.Clear(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted session '%s'\n", args[0])
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a persisted session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Rename(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("renamed session '%s' to '%s'\n", args[0], args[1])
		return nil
	},
}

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete sessions not used within a retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		removed, err := store.Clean(cleanOlderThan, cleanPattern, cleanDryRun)
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			fmt.Println("nothing to clean")
			return nil
		}
		verb := "deleted"
		if cleanDryRun {
			verb = "would delete"
		}
		for _, name := range removed {
			fmt.Printf("%s session '%s'\n", verb, name)
		}
		return nil
	},
}

func init() {
	sessionsCleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 30*24*time.Hour, "Delete sessions unused for this long")
	sessionsCleanCmd.Flags().StringVar(&cleanPattern, "pattern", "", "Only consider sessions matching this glob")
	sessionsCleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Report what would be deleted without deleting")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd, sessionsRenameCmd, sessionsCleanCmd)
}

func openStore() (*session.Store, error) {
	dir, err := workingDir()
	if err != nil {
		return nil, err
	}
	return session.NewStore(dir.SessionsDir()), nil
}
