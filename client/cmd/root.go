package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clientConfig "github.com/monuverse/arch-of-peace-contract/client/cmd/config"
	"github.com/monuverse/arch-of-peace-contract/client/cmd/episode"
	"github.com/monuverse/arch-of-peace-contract/client/cmd/mint"
	"github.com/monuverse/arch-of-peace-contract/client/cmd/reveal"
	"github.com/monuverse/arch-of-peace-contract/client/cmd/whitelist"
	"github.com/monuverse/arch-of-peace-contract/client/utils"
)

var configPath string
var debug bool

var rootCmd = &cobra.Command{
	Use:   "archctl",
	Short: "Arch of Peace episode client",
	Long: `archctl drives an Arch of Peace episode: it installs the chapter graph,
publishes whitelists, mints, advances chapters and reveals the collection.
The episode is persisted between invocations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsEnvironment(cmd) {
			return nil
		}

		env, err := utils.OpenEnvironment(configPath, debug)
		if err != nil {
			return err
		}
		utils.Current = env
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if utils.Current == nil {
			return nil
		}
		defer utils.Current.Close()
		return utils.Current.Persist()
	},
}

// needsEnvironment reports whether cmd works on the persisted episode.
func needsEnvironment(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == clientConfig.ConfigCmd || c == versionCmd {
			return false
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd:
			return false
		}
	}
	return true
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if utils.Current != nil {
			utils.Current.Close()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		".config/config.yml",
		"episode configuration file",
	)
	rootCmd.PersistentFlags().BoolVar(
		&debug,
		"debug",
		false,
		"enable debug logging",
	)
	rootCmd.PersistentFlags().String(
		"from",
		"",
		"caller address (default is the configured owner)",
	)

	rootCmd.AddCommand(clientConfig.ConfigCmd)
	rootCmd.AddCommand(episode.EpisodeCmd)
	rootCmd.AddCommand(whitelist.WhitelistCmd)
	rootCmd.AddCommand(mint.MintCmd)
	rootCmd.AddCommand(reveal.RevealCmd)
}
