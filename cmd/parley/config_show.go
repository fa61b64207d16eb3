package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the layered configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings and the layers that produced them",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, layers, err := resolveSettings()
		if err != nil {
			return err
		}

		fmt.Println("layers (lowest to highest precedence):")
		for _, layer := range layers {
			if layer.Path != "" {
				fmt.Printf("  %-12s %s\n", layer.Name, layer.Path)
			} else {
				fmt.Printf("  %s\n", layer.Name)
			}
		}

		fmt.Println("\neffective settings:")
		out, err := yaml.Marshal(settings)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
