package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// completionWriters maps each supported shell to its cobra generator
var completionWriters = map[string]func(w io.Writer) error{
	"bash":       func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
	"zsh":        func(w io.Writer) error { return rootCmd.GenZshCompletion(w) },
	"fish":       func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
	"powershell": func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) },
}

var completionCmd = &cobra.Command{
	Use:   "completion SHELL",
	Short: "Print a completion script for account, currency and tx commands",
	Long: `Print a script that teaches SHELL to complete ledger subcommands and flags.
SHELL is one of bash, zsh, fish or powershell.

Install it once per user, for example:

  ledger completion bash > ~/.local/share/bash-completion/completions/ledger
  ledger completion zsh > "${fpath[1]}/_ledger"
  ledger completion fish > ~/.config/fish/completions/ledger.fish
  ledger completion powershell >> $PROFILE

Start a new shell afterwards so the script is picked up.`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	Run:                   runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) {
	if err := writeCompletion(os.Stdout, args[0]); err != nil {
		exitError("%v", err)
	}
}

func writeCompletion(w io.Writer, shell string) error {
	gen, ok := completionWriters[shell]
	if !ok {
		return fmt.Errorf("no completion support for shell %q", shell)
	}
	if err := gen(w); err != nil {
		return fmt.Errorf("failed to write %s completion: %w", shell, err)
	}
	return nil
}
