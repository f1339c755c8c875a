package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the database schema up to date",
	Long: `Create missing tables, columns and foreign keys for the built-in types
and every installed plugin. Existing structures are never dropped or
altered. Prints the executed DDL.`,
	Run: runSync,
}

func runSync(cmd *cobra.Command, args []string) {
	c := initContext(context.Background())
	defer c.Close()

	result := c.Session.SyncResult()
	if !result.HasChanges() && len(result.Unenforced) == 0 {
		fmt.Println("Schema is up to date")
		return
	}

	for _, stmt := range result.Statements {
		fmt.Printf("%s;\n", stmt)
	}
	if result.HasChanges() {
		color.New(color.FgGreen).Printf("Executed %d statements\n", len(result.Statements))
	}

	yellow := color.New(color.FgYellow)
	for _, fk := range result.Unenforced {
		yellow.Printf("warning: foreign key not enforced: %s\n", fk)
	}
}
