package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Justype/hqadapter/internal/journal"
)

// detectShell auto-detects the current shell from environment
func detectShell() string {
	shell := os.Getenv("SHELL")
	shellLower := strings.ToLower(shell)

	// Check for specific shells
	if strings.Contains(shellLower, "fish") {
		return "fish"
	}
	if strings.Contains(shellLower, "zsh") {
		return "zsh"
	}
	if strings.Contains(shellLower, "pwsh") || strings.Contains(shellLower, "powershell") {
		return "powershell"
	}

	// Default to bash
	return "bash"
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: func() string {
		detected := detectShell()
		return `Generate shell completion script for hqadapter.

If no shell is specified, ` + detected + ` will be used (auto-detected from $SHELL).

To load completions:

Bash:
  $ source <(hqadapter completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ hqadapter completion bash > /etc/bash_completion.d/hqadapter
  # macOS:
  $ hqadapter completion bash > $(brew --prefix)/etc/bash_completion.d/hqadapter

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ hqadapter completion zsh > "${fpath[1]}/_hqadapter"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ hqadapter completion fish | source

  # To load completions for each session, execute once:
  $ hqadapter completion fish > ~/.config/fish/completions/hqadapter.fish

PowerShell:
  PS> hqadapter completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> hqadapter completion powershell > hqadapter.ps1
  # and source this file from your PowerShell profile.
`
	}(),
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}

		// Temporarily strip short shorthands (-x) from flags so completion shows
		// only long options (e.g., --long-arg). We restore them after generation.
		saved := stripShortFlagShorthands(cmd.Root())
		defer restoreShortFlagShorthands(cmd.Root(), saved)

		out := cmd.OutOrStdout()
		switch shell {
		case "bash":
			// Generate to buffer so we can post-process
			var buf bytes.Buffer
			if err := cmd.Root().GenBashCompletionV2(&buf, true); err != nil {
				_ = cmd.Root().GenBashCompletion(&buf)
			}
			// Post-process so sbatch options after -- complete as files
			io.WriteString(out, postProcessBashCompletion(buf.String()))
		case "zsh":
			cmd.Root().GenZshCompletion(out)
		case "fish":
			cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	for _, c := range []*cobra.Command{cancelCmd, infoCmd, listCmd, watchCmd} {
		c.ValidArgsFunction = jobIDCompletion
	}
}

// jobIDCompletion offers the journal's job ids, unfinished jobs first.
// It never contacts hq, so completion stays instant on remote setups.
func jobIDCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	j, err := openJournal()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	entries, err := j.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeJobIDs(entries, args, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeJobIDs(entries []journal.Entry, used []string, prefix string) []string {
	skip := make(map[string]bool, len(used))
	for _, id := range used {
		skip[id] = true
	}
	var active, done []string
	for _, e := range entries {
		if skip[e.JobID] || !strings.HasPrefix(e.JobID, prefix) {
			continue
		}
		desc := e.JobID
		if e.Name != "" {
			desc += "\t" + e.Name
		}
		if e.Done() {
			done = append(done, desc)
		} else {
			active = append(active, desc)
		}
	}
	return append(active, done...)
}

// postProcessBashCompletion modifies the generated bash completion script
// to handle -- properly (use file completion after --)
func postProcessBashCompletion(script string) string {
	// Find the __hqadapter_get_completion_results function and add -- handling
	// We inject code to check if -- is in the words array, and if so, use default file completion
	oldCode := `args=("${words[@]:1}")
    requestComp="${words[0]} __complete ${args[*]}"`

	newCode := `args=("${words[@]:1}")
    # Check if -- is in the command line; if so, use default file completion
    for word in "${words[@]}"; do
        if [[ "$word" == "--" ]]; then
            return
        fi
    done
    requestComp="${words[0]} __complete ${args[*]}"`

	return strings.Replace(script, oldCode, newCode, 1)
}

// stripShortFlagShorthands walks the command tree and clears the Shorthand
// field for any flag that has one, returning a map of saved values so they
// can be restored later.
func stripShortFlagShorthands(root *cobra.Command) map[string]string {
	saved := make(map[string]string)

	// Helper to strip shorthand from a flag and save it
	stripFlag := func(f *pflag.Flag) {
		if f.Shorthand != "" {
			saved[f.Name] = f.Shorthand
			f.Shorthand = ""
		}
	}

	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		// Strip from local flags
		c.LocalFlags().VisitAll(stripFlag)
		// Strip from persistent flags defined on this command
		c.PersistentFlags().VisitAll(stripFlag)
		// Strip from inherited flags (persistent flags from parent commands)
		c.InheritedFlags().VisitAll(stripFlag)

		for _, child := range c.Commands() {
			walk(child)
		}
	}
	walk(root)
	return saved
}

// restoreShortFlagShorthands restores previously-saved shorthand values.
func restoreShortFlagShorthands(root *cobra.Command, saved map[string]string) {
	// Helper to restore shorthand for a flag
	restoreFlag := func(f *pflag.Flag) {
		if old, ok := saved[f.Name]; ok {
			f.Shorthand = old
		}
	}

	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.LocalFlags().VisitAll(restoreFlag)
		c.PersistentFlags().VisitAll(restoreFlag)
		c.InheritedFlags().VisitAll(restoreFlag)

		for _, child := range c.Commands() {
			walk(child)
		}
	}
	walk(root)
}
