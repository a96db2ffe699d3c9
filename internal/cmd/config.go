package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"trooper/internal/config"
	"trooper/internal/keymap"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or print the configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings and keybinding files",
		Long: `Write config.yaml with the current settings and the default keybindings
to the keymap file. Existing files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			out := cmd.OutOrStdout()

			written, err := writeIfAbsent(path, force, func() error { return config.Save(a.cfg, path) })
			if err != nil {
				return err
			}
			report(out, path, written)

			if a.cfg.KeymapFile == "" {
				return nil
			}
			written, err = writeIfAbsent(a.cfg.KeymapFile, force, func() error {
				if err := os.MkdirAll(filepath.Dir(a.cfg.KeymapFile), 0755); err != nil {
					return err
				}
				return os.WriteFile(a.cfg.KeymapFile, keymap.DefaultSource().Data, 0644)
			})
			if err != nil {
				return err
			}
			report(out, a.cfg.KeymapFile, written)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}

// writeIfAbsent runs write unless path exists and force is off.
func writeIfAbsent(path string, force bool, write func() error) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := write(); err != nil {
		return false, err
	}
	return true, nil
}

func report(out io.Writer, path string, written bool) {
	if written {
		fmt.Fprintf(out, "wrote %s\n", path)
	} else {
		fmt.Fprintf(out, "kept %s (use --force to overwrite)\n", path)
	}
}
