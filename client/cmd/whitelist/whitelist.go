package whitelist

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/monuverse/arch-of-peace-contract/client/utils"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
)

var recordsPath string
var setRoot bool
var chapterLabel string

var WhitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Performs a whitelist operation",
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the whitelist tree from a records file and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		records, err := utils.LoadWhitelistRecords(recordsPath)
		if err != nil {
			return err
		}

		from, _ := cmd.Flags().GetString("from")
		caller, err := env.Caller(from)
		if err != nil {
			return err
		}

		tree, stored, err := env.ReplaceWhitelist(caller, records, setRoot)
		if err != nil {
			return err
		}

		fmt.Printf("Root: %s\n", tree.Root().Hex())
		for i, r := range stored {
			proof, err := tree.Proof(i)
			if err != nil {
				return err
			}
			fmt.Printf("%s limit=%d chapter=%s\n", r.Account.Hex(), r.Limit, r.Chapter.Hex())
			for _, p := range proof {
				fmt.Printf("  %s\n", p.Hex())
			}
		}

		if setRoot {
			fmt.Printf("Whitelist root set: %s\n", tree.Root().Hex())
		}
		return nil
	},
}

var setRootCmd = &cobra.Command{
	Use:   "set-root <root>",
	Short: "Publish a whitelist root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseHash(args[0])
		if err != nil {
			return err
		}
		return applyRoot(cmd, utils.Current, root)
	},
}

var proofCmd = &cobra.Command{
	Use:   "proof <account>",
	Short: "Print the stored whitelist record and proof of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid account %q", args[0])
		}
		record, proof, err := utils.Current.WhitelistProof(
			common.HexToAddress(args[0]),
			episode.LabelID(chapterLabel),
		)
		if err != nil {
			return err
		}

		fmt.Printf("Account: %s\n", record.Account.Hex())
		fmt.Printf("Limit: %d\n", record.Limit)
		fmt.Printf("Chapter: %s (%s)\n", chapterLabel, record.Chapter.Hex())
		fmt.Println("Proof:")
		for _, p := range proof {
			fmt.Printf("  %s\n", p.Hex())
		}
		return nil
	},
}

func applyRoot(cmd *cobra.Command, env *utils.Environment, root common.Hash) error {
	from, _ := cmd.Flags().GetString("from")
	caller, err := env.Caller(from)
	if err != nil {
		return err
	}
	if err := env.Contract.SetWhitelistRoot(caller, root); err != nil {
		return err
	}
	fmt.Printf("Whitelist root set: %s\n", root.Hex())
	return nil
}

func parseHash(s string) (common.Hash, error) {
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("invalid hash %q", s)
	}
	return common.BytesToHash(b), nil
}

func init() {
	buildCmd.Flags().StringVar(
		&recordsPath,
		"records",
		"whitelist.yml",
		"YAML list of account, limit and chapter entries",
	)
	buildCmd.Flags().BoolVar(
		&setRoot,
		"set",
		false,
		"also publish the resulting root",
	)
	proofCmd.Flags().StringVar(
		&chapterLabel,
		"chapter",
		"",
		"label of the chapter the account was whitelisted in",
	)
	proofCmd.MarkFlagRequired("chapter")

	WhitelistCmd.AddCommand(buildCmd)
	WhitelistCmd.AddCommand(setRootCmd)
	WhitelistCmd.AddCommand(proofCmd)
}
