package reveal

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/monuverse/arch-of-peace-contract/client/utils"
	"github.com/monuverse/arch-of-peace-contract/oracle"
)

var word string

var RevealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Performs a reveal operation",
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request the reveal randomness",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		from, _ := cmd.Flags().GetString("from")
		caller, err := env.Caller(from)
		if err != nil {
			return err
		}

		requestID, err := env.Contract.Reveal(context.Background(), caller)
		if err != nil {
			return err
		}
		fmt.Printf("Randomness requested: %s\n", requestID)
		return nil
	},
}

// fulfillCmd answers the pending request as the coordinator would. Requests do
// not survive the process that issued them, so the answer goes straight to the
// contract.
var fulfillCmd = &cobra.Command{
	Use:   "fulfill",
	Short: "Fulfil the pending randomness request",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		requestID, ok := env.Contract.PendingRequest()
		if !ok {
			return errors.New("no pending randomness request")
		}

		random := oracle.DeriveWord(requestID, 0)
		if word != "" {
			var ok bool
			random, ok = new(big.Int).SetString(word, 0)
			if !ok || random.Sign() < 0 {
				return errors.Errorf("invalid random word %q", word)
			}
		}

		if err := env.Contract.RawFulfillRandomWords(
			env.Oracle.Address(),
			requestID,
			[]*big.Int{random},
		); err != nil {
			return err
		}

		current, _ := env.Contract.CurrentChapter()
		fmt.Printf("Seed: %s\n", env.Contract.Seed().Hex())
		fmt.Printf("Current chapter: %s\n", current.Label)
		return nil
	},
}

func init() {
	fulfillCmd.Flags().StringVar(
		&word,
		"word",
		"",
		"random word to deliver (default is derived from the request id)",
	)

	RevealCmd.AddCommand(requestCmd)
	RevealCmd.AddCommand(fulfillCmd)
}
