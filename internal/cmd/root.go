package cmd

import (
	"fmt"
	"io"
	"os"

	"trooper/internal/config"
	"trooper/internal/log"
	"trooper/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// app holds the state shared by every command: flag values and the
// configuration resolved before the command runs.
type app struct {
	cfgFile string
	debug   bool

	v   *viper.Viper
	cfg *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "trooper [directory]",
		Short: "A modal terminal file manager",
		Long: `trooper browses directories with VIM-style key sequences.

Keys are bound in an INI file (default ~/.config/trooper/config.ini).
Copied and cut files and bookmarks are shared by every running instance.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: a.runBrowser,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/trooper/config.yaml)")
	flags.String("keymap", "", "keybinding file (default is $HOME/.config/trooper/config.ini)")
	flags.String("store-dir", "", "directory holding the register and bookmarks")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	_ = a.v.BindPFlag("keymap_file", flags.Lookup("keymap"))
	_ = a.v.BindPFlag("store_dir", flags.Lookup("store-dir"))

	rootCmd.AddCommand(newKeysCmd(a))
	rootCmd.AddCommand(newRegisterCmd(a))
	rootCmd.AddCommand(newBookmarksCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
}

// load resolves the configuration. Log lines go to stderr until the
// browser takes over the terminal.
func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	log.Configure(log.WithOutput(os.Stderr))
	log.SetDebug(a.debug || cfg.Log.Level == "debug")
	log.LogWithFields(log.F("config", a.v.ConfigFileUsed()), log.F("store", cfg.StoreDir)).Debug("configuration loaded")
	return nil
}

// logToFile moves logging off the terminal.
func (a *app) logToFile() {
	if a.cfg.Log.File == "" {
		log.Configure(log.WithOutput(io.Discard))
		return
	}
	log.Configure(log.WithOutput(io.Discard), log.WithFile(a.cfg.Log.File))
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.StoreDir)
}
