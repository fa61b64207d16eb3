package main

import (
	"context"
	"fmt"
	"os"

	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
	"github.com/parley-dev/parley/llm"
	"github.com/parley-dev/parley/logging"
	"github.com/parley-dev/parley/repl"
	"github.com/parley-dev/parley/session"
	"github.com/parley-dev/parley/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sessionFlag      string
	configFlag       string
	presetFlag       string
	debugFlag        bool
	clearSessionFlag bool
	noDefaultFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "parley - a streaming terminal chat client",
	Long: `parley conducts multi-turn conversations with a remote model from
your terminal, streaming replies in as they are generated and persisting
every completed exchange so a session resumes exactly where it left off.

Run without arguments to start chatting in the default session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Explicit config file (final override layer)")
	rootCmd.PersistentFlags().StringVarP(&presetFlag, "preset", "p", "", "Named preset to apply")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Session name to create or resume")
	rootCmd.Flags().BoolVar(&clearSessionFlag, "clear-session", false, "Delete the session's history before starting")
	rootCmd.Flags().BoolVar(&noDefaultFlag, "no-default-session", false, "Start a fresh auto-named session instead of 'default'")

	rootCmd.AddCommand(sessionsCmd, presetsCmd, configCmd, toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveSettings runs the layered config merge for the current process.
func resolveSettings() (config.Settings, []config.Layer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Settings{}, nil, errors.Wrapf(err, "could not determine working directory")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Settings{}, nil, errors.Wrapf(err, "could not determine home directory")
	}
	return config.Resolve(config.Options{
		ConfigFile: configFlag,
		Preset:     presetFlag,
		Cwd:        cwd,
		Home:       home,
		Getenv:     os.Getenv,
	})
}

// workingDir picks the dotdir owning sessions and logs: the project dir
// when the working tree has one, the global dir otherwise.
func workingDir() (config.Dir, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Dir{}, errors.Wrapf(err, "could not determine working directory")
	}
	if dir, ok := config.FindProjectDir(cwd); ok {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Dir{}, errors.Wrapf(err, "could not determine home directory")
	}
	dir, _ := config.GlobalDir(home)
	return dir, nil
}

func runChat(ctx context.Context) error {
	settings, _, err := resolveSettings()
	if err != nil {
		return err
	}

	dir, err := workingDir()
	if err != nil {
		return err
	}
	if err := dir.Create(); err != nil {
		return err
	}

	logger := logging.Setup(dir.LogsDir(), debugFlag)
	defer logger.Sync()

	store := session.NewStore(dir.SessionsDir())

	name := sessionFlag
	if name == "" {
		if noDefaultFlag {
			name, err = store.NextIdentifier()
			if err != nil {
				return err
			}
		} else {
			name = "default"
		}
	}

	if clearSessionFlag {
		if err := store.Clear(name); err != nil {
			return err
		}
	}

	sess, err := store.Open(name, settings)
	if errors.Is(err, session.ErrUnreadable) {
		// Keep the damaged file for inspection and start over elsewhere.
		fresh, idErr := store.NextIdentifier()
		if idErr != nil {
			return idErr
		}
		fmt.Fprintf(os.Stderr, "warning: session '%s' is unreadable, starting fresh session '%s' (original file preserved)\n", name, fresh)
		logger.Warn("session unreadable, starting fresh",
			zap.String("session", name), zap.String("fresh", fresh), zap.Error(err))
		sess, err = store.Open(fresh, settings)
	}
	if err != nil {
		return err
	}

	// A resumed session keeps the settings snapshot it was created with.
	if err := store.Save(sess); err != nil {
		return err
	}

	logger.Info("session opened",
		zap.String("session", sess.Name),
		zap.String("provider", sess.Settings.Provider),
		zap.String("model", sess.Settings.Model),
		zap.Int("turns", len(sess.Turns)))

	streamer, err := llm.New(ctx, sess.Settings)
	if err != nil {
		return err
	}

	return tui.Run(repl.NewEngine(sess), store, streamer, logger)
}
