package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/gate"
	"github.com/rustyeddy/riskgate/sizing"
)

var checkFlags struct {
	symbol    string
	kind      string
	credit    float64
	width     float64
	contracts int
	liquidity float64
	spread    float64
	date      string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Gate a proposed trade execution",
	Long: `Validate a fully specified trade candidate against today's budget,
the hard contract cap, and execution-quality thresholds. The decision
is appended to the audit trail either way.

Example:
  riskgate check --symbol XSP --kind iron_condor --width 1.0 --credit 0.22 \
      --contracts 2 --liquidity 0.8 --spread 0.05`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.symbol, "symbol", "XSP", "Underlying symbol")
	checkCmd.Flags().StringVar(&checkFlags.kind, "kind", string(sizing.IronCondor), "Strategy kind")
	checkCmd.Flags().Float64Var(&checkFlags.credit, "credit", 0, "Net credit per contract")
	checkCmd.Flags().Float64Var(&checkFlags.width, "width", 0, "Symmetric width (points)")
	checkCmd.Flags().IntVar(&checkFlags.contracts, "contracts", 1, "Proposed contract count")
	checkCmd.Flags().Float64Var(&checkFlags.liquidity, "liquidity", 1, "Liquidity score (0..1)")
	checkCmd.Flags().Float64Var(&checkFlags.spread, "spread", 0, "Bid/ask spread")
	checkCmd.Flags().StringVar(&checkFlags.date, "date", "", "Trading date (YYYY-MM-DD, default today)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	date, err := parseDate(checkFlags.date)
	if err != nil {
		return err
	}

	candidate := gate.Candidate{
		Symbol: checkFlags.symbol,
		Spec: sizing.Spec{
			Kind:      sizing.Kind(checkFlags.kind),
			NetCredit: checkFlags.credit,
			Width:     checkFlags.width,
		},
		Contracts:      checkFlags.contracts,
		LiquidityScore: checkFlags.liquidity,
		BidAskSpread:   checkFlags.spread,
		ProposedAt:     time.Now().UTC(),
	}

	res := eng.gate.ValidateExecution(candidate, date)
	if res.Approved {
		fmt.Printf("APPROVED: %s\n", res.Summary)
	} else {
		fmt.Printf("REJECTED (%s): %s\n", res.Reason, res.Summary)
	}
	fmt.Printf("max loss at entry: %.2f\n", res.MaxLossAtEntry)
	return nil
}
