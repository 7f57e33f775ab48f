package mint

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monuverse/arch-of-peace-contract/client/utils"
	"github.com/monuverse/arch-of-peace-contract/mint"
	"github.com/monuverse/arch-of-peace-contract/pricing"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
)

var quantity uint64
var value string
var chapterLabel string

var MintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Performs a mint operation",
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Mint in an open chapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		from, _ := cmd.Flags().GetString("from")
		caller, err := env.Caller(from)
		if err != nil {
			return err
		}
		wei, err := pricing.ToWei(value)
		if err != nil {
			return err
		}

		receipt, err := env.Contract.Mint(caller, quantity, wei)
		if err != nil {
			return err
		}
		printReceipt(receipt)
		return nil
	},
}

var restrictedCmd = &cobra.Command{
	Use:   "restricted",
	Short: "Mint with a stored whitelist record",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		from, _ := cmd.Flags().GetString("from")
		caller, err := env.Caller(from)
		if err != nil {
			return err
		}
		wei, err := pricing.ToWei(value)
		if err != nil {
			return err
		}

		record, proof, err := env.WhitelistProof(
			caller,
			episode.LabelID(chapterLabel),
		)
		if err != nil {
			return err
		}

		receipt, err := env.Contract.MintRestricted(
			caller,
			quantity,
			record.Limit,
			record.Chapter,
			proof,
			wei,
		)
		if err != nil {
			return err
		}
		printReceipt(receipt)
		return nil
	},
}

func printReceipt(r *mint.Receipt) {
	fmt.Printf(
		"Minted %d token(s) to %s, first id %d\n",
		r.Quantity,
		r.Account.Hex(),
		r.FirstTokenID,
	)
	fmt.Printf("Paid: %s\n", pricing.FormatEther(r.Paid))
	if r.ChapterMintedOut {
		fmt.Println("Chapter minted out")
	}
}

func init() {
	for _, c := range []*cobra.Command{openCmd, restrictedCmd} {
		c.Flags().Uint64Var(&quantity, "quantity", 1, "number of tokens")
		c.Flags().StringVar(&value, "value", "0", "amount paid, in ether")
	}
	restrictedCmd.Flags().StringVar(
		&chapterLabel,
		"chapter",
		"",
		"label of the chapter the caller was whitelisted in",
	)
	restrictedCmd.MarkFlagRequired("chapter")

	MintCmd.AddCommand(openCmd)
	MintCmd.AddCommand(restrictedCmd)
}
