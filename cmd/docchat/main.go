package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docchat/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetClientDefaults(v)

	var a *app
	root := &cobra.Command{
		Use:          "docchat",
		Short:        "Chat with an uploaded document",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := newLogger(cfg.Verbose)
			if err != nil {
				return err
			}
			a = newApp(cfg, cmd.OutOrStdout(), logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.repl(cmd.Context(), cmd.InOrStdin())
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", v.GetString("server"), "docchat server base URL")
	flags.Duration("timeout", v.GetDuration("timeout"), "per-request timeout")
	flags.Bool("no-color", false, "plain output without styling")
	flags.Bool("watch", false, "print document status events as they arrive")
	flags.BoolP("verbose", "v", false, "debug logging to stderr")
	v.BindPFlags(flags)

	root.AddCommand(
		&cobra.Command{
			Use:   "upload <path>",
			Short: "Upload a document and make it the active one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.upload(cmd.Context(), args[0])
			},
		},
		newAskCmd(func() *app { return a }),
	)

	return root
}

func newAskCmd(get func() *app) *cobra.Command {
	var each bool
	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask about the active document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if each {
				return a.askEach(cmd.Context(), args)
			}
			return a.ask(cmd.Context(), strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&each, "each", false, "treat every argument as a separate question and ask them concurrently")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}
