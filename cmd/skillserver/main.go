package main

import (
	"context"
	"os"
	"strings"

	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/jingkaihe/skillserver/pkg/presenter"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// A .env next to the binary is optional
	_ = godotenv.Load()

	viper.SetEnvPrefix("SKILLSERVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillserver")
	viper.AddConfigPath(".")

	setConfigDefaults()

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var tracingShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "skillserver",
	Short: "Serve skill bundles to agents over MCP",
	Long: `skillserver indexes a directory of skill bundles (a SKILL.md manifest plus
resource files and scripts) and exposes them to agents as MCP tools:
list_skills, get_skill, list_resources, get_resource and run_script.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		tracingShutdown = shutdown
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func main() {
	rootCmd.PersistentFlags().String("skills-dir", defaultSkillsDir, "Directory containing skill bundles")
	rootCmd.PersistentFlags().String("manifest", defaultManifestName, "Manifest file name of a skill bundle")
	rootCmd.PersistentFlags().StringSlice("ignore", nil, "Glob patterns (relative to the skills directory) of files to ignore")
	rootCmd.PersistentFlags().StringSlice("allowed", nil, "Glob patterns of skill ids to load (default: all)")
	rootCmd.PersistentFlags().String("duplicates", defaultDuplicatePolicy, "What to do with duplicate skill names (overwrite or reject)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")

	viper.BindPFlag("skills.dir", rootCmd.PersistentFlags().Lookup("skills-dir"))
	viper.BindPFlag("skills.manifest", rootCmd.PersistentFlags().Lookup("manifest"))
	viper.BindPFlag("skills.ignore", rootCmd.PersistentFlags().Lookup("ignore"))
	viper.BindPFlag("skills.allowed", rootCmd.PersistentFlags().Lookup("allowed"))
	viper.BindPFlag("skills.duplicates", rootCmd.PersistentFlags().Lookup("duplicates"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(withTracing(listCmd))
	rootCmd.AddCommand(withTracing(validateCmd))
	rootCmd.AddCommand(withTracing(runCmd))
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.ExecuteContext(context.Background())

	if tracingShutdown != nil {
		if shutdownErr := tracingShutdown(context.Background()); shutdownErr != nil {
			logger.L.WithError(shutdownErr).Warn("failed to flush traces")
		}
	}

	if err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
