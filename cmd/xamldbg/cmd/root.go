package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wnxd/xamldbg/command"
)

var (
	cfgFile string
	// Verbose boolean flag for verbose logging
	Verbose bool
	// AppVersion stores the build version
	AppVersion string
)

var rootCmd = &cobra.Command{
	Use:   "xamldbg",
	Short: "Inspect XAML framework state and stowed exceptions in a target snapshot",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		color.NoColor = !viper.GetBool("color")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)

	if AppVersion != "" {
		command.Version = AppVersion
	}
	rootCmd.Version = command.Version

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/xamldbg/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().Bool("color", false, "colorize output")
	rootCmd.PersistentFlags().StringP("snapshot", "s", "", "target snapshot file")
	rootCmd.PersistentFlags().StringP("module", "m", "", "framework module to use when several are loaded")
	rootCmd.PersistentFlags().String("layouts", "", "directory of additional layout tables")
	rootCmd.PersistentFlags().Int("symbol-cache", 0, "symbol name cache size")
	for _, name := range []string{"verbose", "color", "snapshot", "module", "layouts", "symbol-cache"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	viper.BindEnv("color", "CLICOLOR")

	addCommands(rootCmd, command.Default())
	rootCmd.AddCommand(visualizeCmd, threadCmd)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "xamldbg"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("xamldbg")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
