package cmd

import (
	"fmt"
	"text/tabwriter"

	"trooper/internal/keymap"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Print the resolved keybindings",
		Long: `Print every key sequence bound by the defaults and the keybinding file.
With --check only the keybinding file is validated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := keymap.LoadFile(a.cfg.KeymapFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if check {
				fmt.Fprintf(out, "%d bindings OK\n", table.Len())
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEYS\tACTION\tSOURCE")
			for _, b := range table.Bindings() {
				source := "default"
				if b.Source != keymap.DefaultSource().Name {
					source = fmt.Sprintf("%s:%d", b.Source, b.Line)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Sequence, b.Action, source)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "only validate the keybinding file")
	return cmd
}
