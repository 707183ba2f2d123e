package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/calsper/tasteline/internal/catalog"
	"github.com/calsper/tasteline/internal/engine"
	"github.com/calsper/tasteline/internal/store"
)

var cfgFile string
var databasePath string
var tasteUser string
var catalogURL string
var catalogKey string
var sendgridApiKey string
var fromAddress string
var recomputeEvery int64
var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tasteline",
	Short: "Learns your music taste from ratings and predicts new ones",
	Long: `Keeps an append-only log of your track ratings in a local SQLite
database, learns a preference fingerprint from it, watches for behavioral
patterns and taste drift, and predicts how you'll rate tracks you haven't
heard yet.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.tasteline.yaml)")

	rootCmd.PersistentFlags().StringVarP(
		&tasteUser, "user", "u", "", "user to act on")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./tasteline.db", "Path to the SQLite database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	rootCmd.PersistentFlags().StringVar(
		&catalogURL, "catalog_url", "", "Base URL of the audio-feature catalog API")
	viper.BindPFlag("catalog_url", rootCmd.PersistentFlags().Lookup("catalog_url"))

	rootCmd.PersistentFlags().StringVar(
		&catalogKey, "catalog_key", "", "API key for the audio-feature catalog")
	viper.BindPFlag("catalog_key", rootCmd.PersistentFlags().Lookup("catalog_key"))

	rootCmd.PersistentFlags().StringVar(
		&sendgridApiKey, "sendgrid_api_key", "", "SendGrid API key, for emailed reports")
	viper.BindPFlag("sendgrid_api_key", rootCmd.PersistentFlags().Lookup("sendgrid_api_key"))

	rootCmd.PersistentFlags().StringVar(
		&fromAddress, "from", "", "From email address")
	viper.BindPFlag("from", rootCmd.PersistentFlags().Lookup("from"))

	rootCmd.PersistentFlags().Int64Var(
		&recomputeEvery, "recompute_every", engine.DefaultRecomputeEvery,
		"Recompute derived state on every Nth rating (1 = always)")
	viper.BindPFlag("recompute_every", rootCmd.PersistentFlags().Lookup("recompute_every"))

	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "Log pipeline details to stderr")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".tasteline" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".tasteline")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func openStore() (*store.Store, error) {
	return store.New(viper.GetString("database"))
}

// newEngine wires the store and, when configured, the feature catalog.
func newEngine(s *store.Store, log zerolog.Logger) *engine.Engine {
	opts := []engine.Option{
		engine.WithRecomputeEvery(viper.GetInt64("recompute_every")),
	}
	if url := viper.GetString("catalog_url"); url != "" {
		client := catalog.New(catalog.Config{
			BaseURL: url,
			APIKey:  viper.GetString("catalog_key"),
		}, s, log)
		opts = append(opts, engine.WithCatalog(client))
	}
	return engine.New(s, log, opts...)
}

func requireUser() (string, error) {
	user := viper.GetString("user")
	if user == "" {
		return "", fmt.Errorf("required flag \"user\" not set")
	}
	return user, nil
}
