package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/monuverse/arch-of-peace-contract/client/utils"
	"github.com/monuverse/arch-of-peace-contract/config"
)

var owner string
var force bool

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Performs a configuration operation",
}

var printConfigCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var createDefaultConfigCmd = &cobra.Command{
	Use:   "create-default",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if !common.IsHexAddress(owner) {
			return fmt.Errorf("invalid owner address %q", owner)
		}
		if utils.FileExists(path) && !force && !utils.ConfirmOverwrite(path) {
			fmt.Fprintln(os.Stderr, "Keeping existing configuration")
			return nil
		}

		cfg := config.Config{
			Contract: &config.ContractConfig{Owner: owner},
		}.WithDefaults()

		if err := config.SaveConfig(path, &cfg); err != nil {
			return err
		}
		fmt.Printf("Created default config: %s\n", path)
		return nil
	},
}

func init() {
	createDefaultConfigCmd.Flags().StringVar(
		&owner,
		"owner",
		"",
		"owner address of the episode",
	)
	createDefaultConfigCmd.Flags().BoolVar(
		&force,
		"force",
		false,
		"overwrite an existing configuration without asking",
	)
	ConfigCmd.AddCommand(printConfigCmd)
	ConfigCmd.AddCommand(createDefaultConfigCmd)
}
