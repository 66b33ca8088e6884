package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dropzone: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dropzone",
		Short: "dropzone development CLI",
		Long: `dropzone CLI pushes local files through the upload widget pipeline, checks them
against the configured rules, and launches the server and worker binaries directly.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv(configEnv), "Config file to load (defaults to ./dropzone.yaml)")
	cmd.AddCommand(
		newUploadCmd(),
		newValidateCmd(),
		newTestCmd(execRunner),
		newRunCmd(execRunner),
	)
	return cmd
}

const configEnv = "DROPZONE_CONFIG"

// runner starts an external tool. env is appended to the current environment.
type runner func(ctx context.Context, env []string, name string, args ...string) error

func newTestCmd(run runner) *cobra.Command {
	var race, cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run the module's Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			return run(cmd.Context(), nil, "go", append(goArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

func newRunCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the server or worker binary with the selected config",
	}
	for _, name := range []string{"server", "worker"} {
		path := "./cmd/" + name
		cmd.AddCommand(&cobra.Command{
			Use:   name + " [-- args...]",
			Short: fmt.Sprintf("go run %s", path),
			RunE: func(cmd *cobra.Command, args []string) error {
				var env []string
				if configFile != "" {
					env = append(env, configEnv+"="+configFile)
				}
				return run(cmd.Context(), env, "go", append([]string{"run", path}, args...)...)
			},
		})
	}
	return cmd
}

func execRunner(ctx context.Context, env []string, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Env = append(os.Environ(), env...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	if err := execCmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
