package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/snapquote/cmd/audio"
	configcmd "github.com/tphakala/snapquote/cmd/config"
	"github.com/tphakala/snapquote/cmd/detect"
	"github.com/tphakala/snapquote/cmd/history"
	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/runtime"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	debug      bool
	logLevel   string
}

// RootCommand creates and returns the root command
func RootCommand(rt *runtime.Context) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "snapquote",
		Short:         "Audio anomaly and part detection CLI",
		Long:          "snapquote runs pre-trained audio and image models and prints one JSON document per invocation.",
		Version:       rt.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		audio.Command(rt),
		detect.Command(rt),
		history.Command(rt),
		configcmd.Command(rt),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return initialize(cmd, rt, flags)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, flags *globalFlags) {
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to config file (default: search ., $HOME/.config/snapquote, /etc/snapquote)")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
}

// initialize loads the configuration, applies flag overrides and sets up
// logging, metrics and telemetry before any subcommand runs.
func initialize(cmd *cobra.Command, rt *runtime.Context, flags *globalFlags) error {
	settings, err := conf.Load(flags.configFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("debug") {
		settings.Debug = flags.debug
	}
	if flags.logLevel != "" {
		settings.Logging.Level = flags.logLevel
	}

	if err := rt.Init(settings); err != nil {
		return err
	}

	GetLogger().Debug("initialized",
		logger.String("command", cmd.Name()),
		logger.String("version", rt.Build.GetVersion()))
	return nil
}

// Run executes the CLI with args and returns the process exit code. Results
// go to stdout, failures become a single {"error": ...} line on stdout.
func Run(rt *runtime.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := RootCommand(rt)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(context.Background())
	rt.Close()

	if err != nil {
		GetLogger().Debug("command failed", logger.Error(err))
		WriteError(stdout, err)
		return ExitCode(err)
	}
	return 0
}

// GetLogger returns the cli module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("cli")
}
