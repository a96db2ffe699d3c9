package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"trooper/internal/errors"
	"trooper/internal/store"

	"github.com/spf13/cobra"
)

func newBookmarksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmarks",
		Aliases: []string{"bm"},
		Short:   "Manage directory bookmarks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print bookmarks ordered by key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			marks, err := st.ReadBookmarks()
			if err != nil {
				return err
			}
			keys := make([]rune, 0, len(marks))
			for k := range marks {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%c  %s\n", k, marks[k])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <directory>",
		Short: "Bookmark a directory under a single-character key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := bookmarkKey(args[0])
			if err != nil {
				return err
			}
			dir, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			info, err := os.Stat(dir)
			if err != nil {
				return errors.NewFileError("cannot bookmark directory", dir, errors.FileNotFound, err)
			}
			if !info.IsDir() {
				return errors.NewFileError("not a directory", dir, errors.InvalidPath, nil)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			return st.WriteBookmark(key, dir)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"remove"},
		Short:   "Delete a bookmark",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := bookmarkKey(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			marks, err := st.ReadBookmarks()
			if err != nil {
				return err
			}
			if _, ok := marks[key]; !ok {
				return errors.NewNavigationError(fmt.Sprintf("no bookmark %q", key), "", errors.UnknownBookmark, nil)
			}
			return st.DeleteBookmark(key)
		},
	})

	return cmd
}

func bookmarkKey(arg string) (rune, error) {
	r, size := utf8.DecodeRuneInString(arg)
	if size == 0 || size != len(arg) || !store.ValidKey(r) {
		return 0, errors.NewNavigationError(fmt.Sprintf("invalid bookmark key %q", arg), "", errors.InvalidName, nil)
	}
	return r, nil
}
