// Package cli implements the lambdaproxy command line: packaging the
// handler, serving it locally behind an emulated stage, and probing a
// deployed stage.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ProjectName = "lambdaproxy"
	EnvPrefix   = "LAMBDAPROXY"
)

// version is replaced at build time with -ldflags "-X .../internal/cli.version=...".
var version = "0.0.0-development"

// Version returns the build version.
func Version() string {
	return version
}

type app struct {
	v      *viper.Viper
	level  *slog.LevelVar
	logger *slog.Logger
}

// NewRootCmd builds the command tree. Output goes to out, logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: newViper(), level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           ProjectName,
		Short:         "Package, serve and probe a Lambda behind a proxy API Gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if a.v.GetBool("debug") {
				a.level.Set(slog.LevelDebug)
			}
			a.logger = newLogger(errOut, a.level)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().Bool("debug", false, "Enable debug logs")
	_ = a.v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))

	root.AddCommand(
		a.newPackageCmd(),
		a.newProbeCmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		newLogger(os.Stderr, new(slog.LevelVar)).Error(err.Error())
		return 1
	}
	return 0
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}
