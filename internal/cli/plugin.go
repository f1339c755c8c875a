package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect installed plugins",
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins and the properties they contribute",
	Long: `List the plugin manifests found in the plugins directory. Each manifest
contributes extension properties to existing types; run 'ledger sync'
after installing one to add its columns.`,
	Args: cobra.NoArgs,
	Run:  runPluginList,
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
}

func runPluginList(cmd *cobra.Command, args []string) {
	c := initContext(context.Background())
	defer c.Close()

	if len(c.Plugins) == 0 {
		fmt.Printf("No plugins in %s\n", c.Config.PluginsPath())
		return
	}

	yellow := color.New(color.FgYellow)
	for _, m := range c.Plugins {
		yellow.Printf("%s", m.ID)
		if m.Description != "" {
			fmt.Printf("  %s", m.Description)
		}
		fmt.Println()
		for _, ext := range m.Extensions {
			fmt.Printf("  %s extends %s\n", ext.ID, ext.Extends)
			for _, p := range ext.Properties {
				typ := p.Type
				if p.Ref != "" {
					typ += " -> " + p.Ref
				}
				fmt.Printf("    %-24s %s\n", p.Name, typ)
			}
		}
	}
}
