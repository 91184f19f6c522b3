package cli

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script. Dataset ids complete from the
catalog index, which is read from the cache when one is configured.

  $ source <(cosem completion bash)
  $ cosem completion zsh > "${fpath[1]}/_cosem"
  $ cosem completion fish > ~/.config/fish/completions/cosem.fish
  PS> cosem completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}

// completeDatasets completes the first argument with dataset ids.
// Completion runs without the persistent pre-run, so it loads the config
// itself and releases the cache when done.
func (c *CLI) completeDatasets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if c.config == nil {
		if cfg, err := loadConfig(c.configPath); err == nil {
			c.config = cfg
		}
	}
	defer c.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cat, err := c.newCatalog(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	idx, err := cat.Datasets(ctx, false)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var ids []string
	for id := range idx {
		if strings.HasPrefix(id, toComplete) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, cobra.ShellCompDirectiveNoFileComp
}
