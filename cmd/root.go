// Package cmd implements the newswire command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/newswire/newswire/cmd/crawl"
	"github.com/newswire/newswire/cmd/httpd"
	"github.com/newswire/newswire/cmd/latest"
	cmdschedule "github.com/newswire/newswire/cmd/schedule"
	"github.com/newswire/newswire/cmd/search"
	cmdsources "github.com/newswire/newswire/cmd/sources"
	"github.com/newswire/newswire/cmd/symbol"
	"github.com/newswire/newswire/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "newswire",
		Short: "Financial news crawler and aggregator",
		Long: `Newswire crawls financial news from RSS feeds and JSON APIs,
normalizes and deduplicates the articles, and stores them in PostgreSQL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()

	// Parse flags early so --config and --debug affect viper setup.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("initializing configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("newswire version %s\n", config.New().App.Version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(latest.Command())
	rootCmd.AddCommand(search.Command())
	rootCmd.AddCommand(symbol.Command())
	rootCmd.AddCommand(cmdsources.Command())
	rootCmd.AddCommand(cmdschedule.Command())
	rootCmd.AddCommand(httpd.Command())
}

// initConfig reads the config file and environment variables into viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NEWSWIRE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional: environment variables and defaults cover
	// every setting.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found, using defaults and environment: %v\n", err)
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	if debug || viper.GetBool("app.debug") {
		viper.Set("logger.level", "debug")
		viper.Set("app.debug", true)
	}
	if viper.GetString("app.environment") == "development" {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	return nil
}

func bindEnvVars() error {
	bindings := map[string][]string{
		"app.environment":   {"APP_ENV"},
		"logger.level":      {"LOG_LEVEL"},
		"database.host":     {"POSTGRES_HOST"},
		"database.port":     {"POSTGRES_PORT"},
		"database.user":     {"POSTGRES_USER"},
		"database.password": {"POSTGRES_PASSWORD"},
		"database.dbname":   {"POSTGRES_DB"},
		"sentiment.url":     {"SENTIMENT_URL"},
		"sources_file":      {"SOURCES_FILE"},
	}

	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	return nil
}

func setDefaults() {
	defaults := config.New()

	viper.SetDefault("app", map[string]any{
		"name":        defaults.App.Name,
		"version":     defaults.App.Version,
		"environment": defaults.App.Environment,
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":    "info",
		"encoding": "json",
	})

	viper.SetDefault("database", map[string]any{
		"host":    defaults.Database.Host,
		"port":    defaults.Database.Port,
		"user":    defaults.Database.User,
		"dbname":  defaults.Database.DBName,
		"sslmode": defaults.Database.SSLMode,
	})

	viper.SetDefault("crawl", map[string]any{
		"fetch_count":     defaults.Crawl.FetchCount,
		"since_days":      defaults.Crawl.SinceDays,
		"request_timeout": defaults.Crawl.RequestTimeout.String(),
		"schedule":        defaults.Crawl.Schedule,
	})

	viper.SetDefault("sentiment", map[string]any{
		"enabled": false,
		"timeout": "10s",
	})

	viper.SetDefault("sources_file", defaults.SourcesFile)
}
