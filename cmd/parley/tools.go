package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/parley-dev/parley/mcp"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Probe the declared MCP servers and list their tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := resolveSettings()
		if err != nil {
			return err
		}
		if len(settings.MCPServers) == 0 {
			fmt.Println("no MCP servers declared")
			return nil
		}

		tools, err := mcp.Probe(cmd.Context(), settings.MCPServers)
		if err != nil {
			return err
		}
		if len(tools) == 0 {
			fmt.Println("declared servers offer no tools")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SERVER\tTOOL\tDESCRIPTION")
		for _, t := range tools {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Server, t.Name, t.Description)
		}
		return w.Flush()
	},
}
