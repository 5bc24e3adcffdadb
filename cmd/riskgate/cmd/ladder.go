package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/budget"
)

var ladderPnls string

var ladderCmd = &cobra.Command{
	Use:   "ladder",
	Short: "Replay daily P&Ls through the loss ladder",
	Long: `Feed a comma-separated sequence of daily net P&Ls through the
Reverse-Fibonacci ladder and print the resulting limit progression.

Example:
  riskgate ladder --pnl " -120, -80, 5, 20, -40"`,
	Args: cobra.NoArgs,
	RunE: runLadder,
}

func init() {
	rootCmd.AddCommand(ladderCmd)
	ladderCmd.Flags().StringVar(&ladderPnls, "pnl", "", "Comma-separated daily net P&Ls")
	_ = ladderCmd.MarkFlagRequired("pnl")
}

func runLadder(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var pnls []float64
	for _, field := range strings.Split(ladderPnls, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return fmt.Errorf("parse pnl %q: %w", field, err)
		}
		pnls = append(pnls, v)
	}
	if len(pnls) == 0 {
		return fmt.Errorf("no P&L values given")
	}

	tracker := budget.NewTracker(cfg.Budget)
	day := time.Now().UTC().AddDate(0, 0, -len(pnls))

	fmt.Printf("%-12s %10s %6s %10s\n", "day", "pnl", "rung", "limit")
	for i, pnl := range pnls {
		tracker.StartNewDay(day)
		fmt.Printf("%-12s %10.2f %6d %10.2f\n",
			day.Format("2006-01-02"), pnl,
			tracker.ConsecutiveLossDays(), tracker.DailyLimit(day))
		tracker.RecordTradeResult(day, pnl)
		day = day.AddDate(0, 0, 1)
		if i == len(pnls)-1 {
			tracker.StartNewDay(day)
			fmt.Printf("%-12s %10s %6d %10.2f\n",
				day.Format("2006-01-02"), "-",
				tracker.ConsecutiveLossDays(), tracker.DailyLimit(day))
		}
	}

	if statePath != "" {
		if err := budget.SaveState(statePath, tracker.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}
