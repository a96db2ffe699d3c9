package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"trooper/internal/errors"
	"trooper/internal/store"

	"github.com/spf13/cobra"
)

func newRegisterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Inspect or set the shared copy/cut register",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			reg, err := st.ReadRegister()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode: %s\n", reg.Mode)
			for _, e := range reg.Entries {
				fmt.Fprintln(out, e)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			return st.ClearRegister()
		},
	})

	cmd.AddCommand(newMarkCmd(a, store.Yanked, "yank", "Mark paths to be copied by the next paste"))
	cmd.AddCommand(newMarkCmd(a, store.Cut, "cut", "Mark paths to be moved by the next paste"))

	return cmd
}

func newMarkCmd(a *app, mode store.Mode, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <path>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				if _, err := os.Lstat(abs); err != nil {
					return errors.NewFileError("cannot mark path", abs, errors.FileNotFound, err)
				}
				paths = append(paths, abs)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			if err := st.WriteRegister(mode, paths); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d path(s)\n", mode, len(paths))
			return nil
		},
	}
}
