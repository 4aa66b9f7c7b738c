// Package cmd provides the command-line interface of embedlab.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that provide defaults for flags left unset.
const (
	envPort   = "EMBEDLAB_PORT"
	envFPS    = "EMBEDLAB_FPS"
	envRecord = "EMBEDLAB_RECORD"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "embedlab",
	Short: "embedlab simulates the basics of embedded systems.",
	Long: `embedlab simulates an analog sensor, a motor, an interrupt ` +
		`handler, a real-time deadline and a stack/heap memory tower, ` +
		`advancing them frame by frame. Run it headless with a scenario ` +
		`or serve it to a browser.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return loadEnv()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnv reads an optional .env file. Variables already set win.
func loadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func stringFlagOrEnv(cmd *cobra.Command, flag, env string) string {
	value, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return value
	}

	if v, ok := os.LookupEnv(env); ok {
		return v
	}

	return value
}

func intFlagOrEnv(cmd *cobra.Command, flag, env string) (int, error) {
	value, _ := cmd.Flags().GetInt(flag)
	if cmd.Flags().Changed(flag) {
		return value, nil
	}

	v, ok := os.LookupEnv(env)
	if !ok {
		return value, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", env, err)
	}

	return n, nil
}
