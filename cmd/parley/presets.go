package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage named configuration presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets from the project and global preset directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.Wrapf(err, "could not determine working directory")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrapf(err, "could not determine home directory")
		}

		presets, err := config.ListPresets(cwd, home)
		if err != nil {
			return err
		}
		if len(presets) == 0 {
			fmt.Println("no presets found")
			return nil
		}

		names := make([]string, 0, len(presets))
		for name := range presets {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, presets[name].PresetFile(name))
		}
		return w.Flush()
	},
}

func init() {
	presetsCmd.AddCommand(presetsListCmd)
}
