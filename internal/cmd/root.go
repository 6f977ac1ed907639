// Package cmd implements the bl command-line interface.
package cmd

import (
	"io"
	"os"
	"sync"

	"backlog-lite/internal/branchsource"
	"backlog-lite/internal/config"
	"backlog-lite/internal/taskstore"

	"github.com/spf13/cobra"
)

// AppProvider lazily initializes the App on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	BacklogPath string
	JSONOutput  bool
	Verbose     bool
	Out         io.Writer
	Err         io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// NewTestProvider creates a provider pre-initialized with the given App.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{
		app: app,
		Out: app.Out,
		Err: app.Err,
	}
}

func (p *AppProvider) init() (*App, error) {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}
	logger := newLogger(errOut, p.Verbose)

	paths, cfg, err := config.ResolvePaths(p.BacklogPath)
	if err != nil {
		return nil, err
	}

	opts := []taskstore.Option{taskstore.WithLogger(logger)}
	if root := config.FindGitRoot(paths.Root); root != "" {
		git := branchsource.NewGit(root, branchsource.WithLogger(logger))
		opts = append(opts, taskstore.WithBranchSource(git, root))
	}

	return &App{
		Store:  taskstore.New(paths.BacklogDir, cfg, opts...),
		Config: cfg,
		Paths:  paths,
		Logger: logger,
		Out:    out,
		Err:    errOut,
		JSON:   p.JSONOutput,
	}, nil
}

// Execute runs the CLI.
func Execute() error {
	provider := &AppProvider{
		Out: os.Stdout,
		Err: os.Stderr,
	}
	return newRootCmd(provider).Execute()
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bl",
		Short: "A task board that lives in your repo as markdown files",
		Long: `Backlog Lite keeps tasks as markdown files under backlog/.
Each file has YAML frontmatter for metadata and a body with a description,
checklists and notes. Tasks on other recently active branches are merged
into the board so work in progress elsewhere stays visible.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&provider.JSONOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&provider.BacklogPath, "path", "", "Path to the project or backlog directory (default: search from cwd)")
	rootCmd.PersistentFlags().BoolVarP(&provider.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newInitCmd(provider))
	rootCmd.AddCommand(newListCmd(provider))
	rootCmd.AddCommand(newShowCmd(provider))
	rootCmd.AddCommand(newCreateCmd(provider))
	rootCmd.AddCommand(newUpdateCmd(provider))
	rootCmd.AddCommand(newToggleCmd(provider))
	rootCmd.AddCommand(newChecklistCmd(provider))
	rootCmd.AddCommand(newMoveCmd(provider))
	rootCmd.AddCommand(newArchiveCmd(provider))
	rootCmd.AddCommand(newCompleteCmd(provider))
	rootCmd.AddCommand(newPromoteCmd(provider))
	rootCmd.AddCommand(newDemoteCmd(provider))
	rootCmd.AddCommand(newReorderCmd(provider))
	rootCmd.AddCommand(newRepairOrdinalsCmd(provider))
	rootCmd.AddCommand(newBranchesCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))

	return rootCmd
}
