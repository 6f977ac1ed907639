package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"backlog-lite/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change backlog/config.yml",
		Long: `Show and change backlog/config.yml.

Subcommands:
  list      Show every setting, with environment overrides applied
  get       Print one setting
  set       Change one setting in config.yml
  validate  Check config.yml`,
	}

	cmd.AddCommand(newConfigListCmd(provider))
	cmd.AddCommand(newConfigGetCmd(provider))
	cmd.AddCommand(newConfigSetCmd(provider))
	cmd.AddCommand(newConfigValidateCmd(provider))
	return cmd
}

// configValues flattens cfg into its yaml keys.
func configValues(cfg config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func newConfigListCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if app.JSON {
				values, err := configValues(app.Config)
				if err != nil {
					return err
				}
				return app.printJSON(values)
			}
			data, err := yaml.Marshal(app.Config)
			if err != nil {
				return err
			}
			_, err = app.Out.Write(data)
			return err
		},
	}
}

func newConfigGetCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Long: `Print the value of one setting.

Examples:
  bl config get task_prefix
  bl config get statuses`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			values, err := configValues(app.Config)
			if err != nil {
				return err
			}
			value, ok := values[args[0]]
			if !ok {
				return fmt.Errorf("unknown setting %q (known: %s)", args[0], joinKeys(values))
			}
			if app.JSON {
				return app.printJSON(map[string]any{args[0]: value})
			}
			if list, ok := value.([]any); ok {
				for _, item := range list {
					fmt.Fprintln(app.Out, item)
				}
				return nil
			}
			fmt.Fprintln(app.Out, value)
			return nil
		},
	}
}

func newConfigSetCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in config.yml",
		Long: `Change one setting. The value is read as YAML, so lists are written
inline.

Examples:
  bl config set active_branch_days 14
  bl config set statuses "[Backlog, Doing, Done]"
  bl config set task_resolution_strategy most_progressed`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			key, raw := args[0], args[1]

			onDisk, err := config.Load(app.Paths.ConfigFile)
			if err != nil {
				return err
			}
			values, err := configValues(onDisk)
			if err != nil {
				return err
			}
			if _, ok := values[key]; !ok {
				return fmt.Errorf("unknown setting %q (known: %s)", key, joinKeys(values))
			}
			var value any
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("parsing value: %w", err)
			}
			values[key] = value

			data, err := yaml.Marshal(values)
			if err != nil {
				return err
			}
			var updated config.Config
			if err := yaml.Unmarshal(data, &updated); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := config.Validate(updated); err != nil {
				return err
			}
			if err := config.Write(app.Paths.ConfigFile, updated); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "%s Set %s\n", app.SuccessColor("✓"), key)
			return nil
		},
	}
}

func newConfigValidateCmd(provider *AppProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check config.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if _, err := os.Stat(app.Paths.ConfigFile); err != nil {
				return err
			}
			cfg, err := config.Load(app.Paths.ConfigFile)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "%s %s is valid\n", app.SuccessColor("✓"), app.Paths.ConfigFile)
			return nil
		},
	}
}

func joinKeys(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
