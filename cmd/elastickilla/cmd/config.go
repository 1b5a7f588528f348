package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/elastickilla/elastickilla/configs"
	"github.com/elastickilla/elastickilla/internal/config"
	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the user and project configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/elastickilla/config.yaml)
  3. --config, or .elastickilla.yaml in the working directory
  4. Environment variables (ELASTICKILLA_*)`,
		Example: `  # Create user config from template
  elastickilla config init

  # Show effective configuration (merged from all sources)
  elastickilla config show

  # Print user config file path
  elastickilla config path`,
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigBackupsCmd(a))
	cmd.AddCommand(newConfigRestoreCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Write the commented configuration template to the user config file, or
with --project to .elastickilla.yaml in the working directory.

An existing file is kept unless --force is given; it is then backed up
before being replaced.`,
		Example: `  elastickilla config init
  elastickilla config init --project
  elastickilla config init --force`,
		Annotations: map[string]string{annSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, a, force, project)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration (a backup is kept)")
	cmd.Flags().BoolVar(&project, "project", false, "Write .elastickilla.yaml in the working directory")

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources, or one source alone
with --source.`,
		Example: `  # Show merged configuration
  elastickilla config show

  # Show as JSON
  elastickilla config show --json

  # Show only user config
  elastickilla config show --source user`,
		Annotations: map[string]string{annSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, a, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print user config file path",
		Annotations: map[string]string{annSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func newConfigBackupsCmd(a *app) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:         "backups",
		Short:       "List configuration backups, newest first",
		Annotations: map[string]string{annSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configTarget(project)
			backups, err := config.ListBackups(path)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				a.printer(cmd).Info("No backups of %s", path)
				return nil
			}
			for _, b := range backups {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Use .elastickilla.yaml in the working directory")

	return cmd
}

func newConfigRestoreCmd(a *app) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore a configuration backup",
		Long: `Replace the configuration file with a backup. Without an argument the
newest backup is restored. The current file is backed up first.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigRestore(cmd, a, configTarget(project), args)
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Use .elastickilla.yaml in the working directory")

	return cmd
}

// configTarget is the file config init, backups and restore act on.
func configTarget(project bool) string {
	if project {
		return config.ProjectFile
	}
	return config.GetUserConfigPath()
}

func runConfigInit(cmd *cobra.Command, a *app, force, project bool) error {
	out := a.printer(cmd)
	path := configTarget(project)

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warn("configuration already exists at %s", path)
			out.Info("Use --force to replace it with the template (a backup is kept)")
			return nil
		}
		backup, err := config.Backup(path)
		if err != nil {
			return err
		}
		out.Info("Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ekerrors.New(ekerrors.ErrCodeConfigPermission,
			"failed to create config directory "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return ekerrors.New(ekerrors.ErrCodeConfigPermission, "failed to write "+path, err)
	}

	out.Info("Created configuration at %s", path)
	out.Info("Edit it, then run 'elastickilla config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, a *app, jsonOutput bool, source string) error {
	out := a.printer(cmd)

	var (
		cfg  *config.Config
		desc string
	)
	switch source {
	case "merged":
		loaded, err := config.Load(a.opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		desc = "merged (defaults + user + project + env)"

	case "user", "project":
		path := configTarget(source == "project")
		if a.opts.configPath != "" && source == "project" {
			path = a.opts.configPath
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			out.Warn("no %s configuration file at %s", source, path)
			out.Info("Run 'elastickilla config init' to create one")
			return nil
		}
		if err != nil {
			return ekerrors.IOError(path, err)
		}
		cfg = config.NewConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return ekerrors.ConfigError("failed to parse "+path, err)
		}
		desc = fmt.Sprintf("%s (%s)", source, path)

	case "defaults":
		cfg = config.NewConfig()
		desc = "defaults (hardcoded)"

	default:
		return ekerrors.ValidationError(
			fmt.Sprintf("invalid source: %s (use: merged, user, project, defaults)", source), nil)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	out.Info("Configuration source: %s", desc)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigRestore(cmd *cobra.Command, a *app, path string, args []string) error {
	var backup string
	if len(args) == 1 {
		backup = args[0]
	} else {
		backups, err := config.ListBackups(path)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			return ekerrors.New(ekerrors.ErrCodeConfigNotFound, "no backups of "+path, nil).
				WithSuggestion("Backups are made by 'elastickilla config init --force'")
		}
		backup = backups[0]
	}

	if err := config.Restore(path, backup); err != nil {
		return err
	}
	a.printer(cmd).Info("Restored %s from %s", path, backup)
	return nil
}
