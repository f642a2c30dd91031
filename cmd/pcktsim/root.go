package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pcktsim",
	Short: "pcktsim simulates packet traffic over a network topology.",
	Long: `pcktsim runs discrete-event simulations of packet traffic over ` +
		`a network of hosts, switches and routers, described in yaml or json ` +
		`files. Settings are read from a config file, from flags, and from ` +
		`PCKTSIM_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log drops and topology changes")
	rootCmd.PersistentFlags().String("topology", "", "topology description file")
	rootCmd.PersistentFlags().String("experiment", "", "experiment description file")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("topology", rootCmd.PersistentFlags().Lookup("topology"))
	viper.BindPFlag("experiment", rootCmd.PersistentFlags().Lookup("experiment"))
}

// initConfig reads the config file, if any, and the environment
func initConfig() {
	viper.SetDefault("duration", 0.0)
	viper.SetDefault("trace.file", "")
	viper.SetDefault("trace.records", "")
	viper.SetDefault("trace.db", "")
	viper.SetDefault("samples.file", "")
	viper.SetDefault("samples.interval", 100.0)
	viper.SetDefault("samples.mode", "cumulative")
	viper.SetDefault("monitor.addr", "")
	viper.SetDefault("monitor.open", false)
	viper.SetDefault("metrics.file", "")
	viper.SetDefault("neo4j.uri", "")
	viper.SetDefault("neo4j.user", "")
	viper.SetDefault("neo4j.password", "")
	viper.SetDefault("neo4j.database", "neo4j")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("reading config file %s: %v", cfgFile, err)
		}
	}

	viper.SetEnvPrefix("PCKTSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
