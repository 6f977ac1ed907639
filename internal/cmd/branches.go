package cmd

import (
	"errors"
	"fmt"

	"backlog-lite/internal/branchsource"

	"github.com/spf13/cobra"
)

// newBranchesCmd creates the branches command.
func newBranchesCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Show the branches list reads tasks from",
		Long: `Show the branches selected for the cross-branch board: the current
branch, the main branch, and every branch with a commit inside
active_branch_days, in the order used to break ties.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			agg, err := app.Store.Aggregator()
			if err != nil {
				return err
			}
			sel, err := agg.SelectBranches(cmd.Context())
			if errors.Is(err, branchsource.ErrUnavailable) {
				if app.JSON {
					return app.printJSON(map[string]any{"available": false})
				}
				fmt.Fprintln(app.Out, app.WarnColor("Version control is not available; only local tasks are shown."))
				return nil
			}
			if err != nil {
				return fmt.Errorf("selecting branches: %w", err)
			}

			if app.JSON {
				return app.printJSON(map[string]any{
					"available": true,
					"current":   sel.Current,
					"default":   sel.Default,
					"branches":  sel.Branches,
				})
			}
			if !app.Config.CheckActiveBranches {
				fmt.Fprintln(app.Out, app.WarnColor("check_active_branches is off; list shows local tasks only."))
			}
			for _, b := range sel.Branches {
				var tags string
				switch {
				case b.Name == sel.Current && !b.IsRemote:
					tags = " " + app.SuccessColor("(current)")
				case b.ShortName() == sel.Default:
					tags = " " + app.DimColor("(default)")
				}
				when := "unknown"
				if !b.LastCommit.IsZero() {
					when = b.LastCommit.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(app.Out, "%-40s %s%s\n", b.Name, when, tags)
			}
			return nil
		},
	}
	return cmd
}
