package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/sizing"
)

var sizeFlags struct {
	kind      string
	credit    float64
	width     float64
	putWidth  float64
	callWidth float64
	bodyWidth float64
	wingWidth float64
	date      string
	asJSON    bool
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Derive the maximum contract count for a strategy",
	Long: `Compute the whole-number contract count today's remaining budget
supports for a strategy specification.

Examples:
  riskgate size --kind iron_condor --width 1.0 --credit 0.22
  riskgate size --kind broken_wing_butterfly --body-width 2 --wing-width 3 --credit 0.35 --json`,
	Args: cobra.NoArgs,
	RunE: runSize,
}

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVar(&sizeFlags.kind, "kind", string(sizing.IronCondor), "Strategy kind: iron_condor|broken_wing_butterfly")
	sizeCmd.Flags().Float64Var(&sizeFlags.credit, "credit", 0, "Net credit per contract")
	sizeCmd.Flags().Float64Var(&sizeFlags.width, "width", 0, "Symmetric width (points)")
	sizeCmd.Flags().Float64Var(&sizeFlags.putWidth, "put-width", 0, "Put side width (points)")
	sizeCmd.Flags().Float64Var(&sizeFlags.callWidth, "call-width", 0, "Call side width (points)")
	sizeCmd.Flags().Float64Var(&sizeFlags.bodyWidth, "body-width", 0, "Butterfly body width (points)")
	sizeCmd.Flags().Float64Var(&sizeFlags.wingWidth, "wing-width", 0, "Butterfly wing width (points)")
	sizeCmd.Flags().StringVar(&sizeFlags.date, "date", "", "Trading date (YYYY-MM-DD, default today)")
	sizeCmd.Flags().BoolVar(&sizeFlags.asJSON, "json", false, "Emit the result as JSON")
}

func runSize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	date, err := parseDate(sizeFlags.date)
	if err != nil {
		return err
	}

	spec := sizing.Spec{
		Kind:      sizing.Kind(sizeFlags.kind),
		NetCredit: sizeFlags.credit,
		Width:     sizeFlags.width,
		PutWidth:  sizeFlags.putWidth,
		CallWidth: sizeFlags.callWidth,
		BodyWidth: sizeFlags.bodyWidth,
		WingWidth: sizeFlags.wingWidth,
	}

	res := eng.sizer.MaxContracts(date, spec)

	if sizeFlags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if !res.Valid {
		fmt.Printf("invalid spec: %s\n", res.Details)
		return nil
	}
	fmt.Printf("contracts:        %d (%s)\n", res.Contracts, res.Derivation)
	fmt.Printf("derived:          %d\n", res.DerivedContracts)
	fmt.Printf("fraction:         %.2f (dynamic=%v)\n", res.AppliedFraction, res.DynamicFraction)
	fmt.Printf("max loss/contract: %.2f\n", res.MaxLossPerContract)
	fmt.Printf("allowance:        %.2f of remaining %.2f\n", res.Allowance, res.Remaining)
	fmt.Printf("details:          %s\n", res.Details)
	return nil
}
