package episode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monuverse/arch-of-peace-contract/client/utils"
	"github.com/monuverse/arch-of-peace-contract/pricing"
)

var vizFormat string

var EpisodeCmd = &cobra.Command{
	Use:   "episode",
	Short: "Performs an episode operation",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Install the configured episode",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		from, _ := cmd.Flags().GetString("from")
		caller, err := env.Caller(from)
		if err != nil {
			return err
		}

		ep, err := env.Config.Episode.ToEpisode()
		if err != nil {
			return err
		}
		if err := env.Contract.Install(caller, ep); err != nil {
			return err
		}

		current, _ := env.Contract.CurrentChapter()
		fmt.Printf(
			"Installed %d chapters, %d transitions\n",
			len(ep.Chapters),
			len(ep.Transitions),
		)
		fmt.Printf("Current chapter: %s\n", current.Label)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current chapter and the contract totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		c := env.Contract
		viz := c.Viz()

		fmt.Print(viz.GetCurrentStateInfo())
		fmt.Println()
		fmt.Printf("Contract: %s (%s)\n", c.Name(), c.Symbol())
		fmt.Printf("Owner: %s\n", c.Owner().Hex())
		fmt.Printf("Supply: %d / %d\n", c.TotalSupply(), c.MaxSupply())
		fmt.Printf("Remaining in chapter: %d\n", c.RemainingAllocation())
		fmt.Printf("Proceeds: %s\n", pricing.FormatEther(c.Proceeds()))
		fmt.Printf("Whitelist root: %s\n", c.WhitelistRoot().Hex())
		fmt.Printf("Reveal: %s\n", c.RevealStatus())
		if c.Revealed() {
			fmt.Printf("Seed: %s\n", c.Seed().Hex())
		}
		if c.IsFinalChapter() {
			fmt.Println("Episode concluded")
		}
		return nil
	},
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Render the chapter graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		viz := utils.Current.Contract.Viz()
		switch vizFormat {
		case "mermaid":
			fmt.Print(viz.GenerateMermaidDiagram())
		case "dot":
			fmt.Print(viz.GenerateDotDiagram())
		case "table":
			fmt.Print(viz.GenerateTransitionTable())
		default:
			return fmt.Errorf("unknown format %q", vizFormat)
		}
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:       "advance [onlife|seal]",
	Short:     "Emit a chapter advancing event",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"onlife", "seal"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env := utils.Current
		from, _ := cmd.Flags().GetString("from")
		caller, err := env.Caller(from)
		if err != nil {
			return err
		}

		if args[0] == "seal" {
			err = env.Contract.SealMinting(caller)
		} else {
			err = env.Contract.EmitOnlifeEvent(caller)
		}
		if err != nil {
			return err
		}

		current, _ := env.Contract.CurrentChapter()
		fmt.Printf("Current chapter: %s\n", current.Label)
		return nil
	},
}

func init() {
	vizCmd.Flags().StringVar(
		&vizFormat,
		"format",
		"mermaid",
		"output format: mermaid, dot or table",
	)

	EpisodeCmd.AddCommand(initCmd)
	EpisodeCmd.AddCommand(statusCmd)
	EpisodeCmd.AddCommand(vizCmd)
	EpisodeCmd.AddCommand(advanceCmd)
}
