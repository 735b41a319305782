package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/knzhou-cli/knzhou/internal/config"
	"github.com/knzhou-cli/knzhou/internal/logging"
	"github.com/knzhou-cli/knzhou/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "KNZHOU"
	envConfigPath  = envPrefix + "_CONFIG_PATH"
	dotEnvFileName = ".env"
)

var rootCmd = newRootCmd()

// closeLog flushes the optional log file once the command returns.
var closeLog = func() error { return nil }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     version.AppName,
		Short:   "Mirror Kevin Zhou's physics handouts and log study hours",
		Version: version.Detailed(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")

			closer, err := logging.Setup(logging.Options{
				Verbose: verbose,
				LogFile: logFile,
				Output:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			closeLog = closer
			return nil
		},
	}

	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	cmd.PersistentFlags().String("log-file", "", "also write logs to this file")

	cmd.AddCommand(
		newUpdateCmd(),
		newConfigCmd(),
		newHoursCmd(),
		newVersionCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeLog(); cerr != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath honours, in order, an explicit --config flag, the
// KNZHOU_CONFIG_PATH variable and the default location.
func resolveConfigPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return config.DefaultConfigPath
}

// loadConfig layers defaults, the TOML config file, KNZHOU_* environment
// variables (optionally from .env) and command flags, then validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(dotEnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotEnvFileName, err)
	}

	path := resolveConfigPath(cmd)
	defaults := config.Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("format", defaults.Format)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("site_url", defaults.SiteURL)
	v.SetDefault("repo", defaults.Repo)
	v.SetDefault("branch", defaults.Branch)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", path, err)
		}
	}

	if f := cmd.Flags().Lookup("output-dir"); f != nil {
		v.BindPFlag("output_dir", f)
	}
	if f := cmd.Flags().Lookup("workers"); f != nil {
		v.BindPFlag("workers", f)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
