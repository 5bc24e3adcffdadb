package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/audit"
)

var auditDBPath string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query and export audit records from the SQLite audit store.

Examples:
  riskgate audit recent 20
  riskgate audit day 2026-08-28
  riskgate audit export > audit.jsonl`,
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent [n]",
	Short: "Show the most recent n audit records",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditRecent,
}

var auditDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Show audit records for a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditDay,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit trail as line-oriented JSON",
	Args:  cobra.NoArgs,
	RunE:  runAuditExport,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecentCmd, auditDayCmd, auditExportCmd)

	auditCmd.PersistentFlags().StringVarP(&auditDBPath, "db", "d", "./riskgate.sqlite", "path to SQLite audit DB")
}

func openAuditStore() (*audit.SQLite, error) {
	store, err := audit.NewSQLite(auditDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return store, nil
}

func printRecords(recs []audit.Record) {
	for _, r := range recs {
		reason := ""
		if r.Reason != "" {
			reason = " " + r.Reason
		}
		fmt.Printf("%s %-24s %-6s %dx w=%.2f cr=%.2f cap=%.2f rem=%.2f %s%s\n",
			r.ID, r.T.Format(time.RFC3339), r.Symbol, r.Contracts,
			r.Width, r.Credit, r.DailyCap, r.RemainingBudget, r.Decision, reason)
	}
}

func runAuditRecent(cmd *cobra.Command, args []string) error {
	n := 20
	if len(args) == 1 {
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Recent(n)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	printRecords(recs)
	return nil
}

func runAuditDay(cmd *cobra.Command, args []string) error {
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.RecordsBetween(day, day.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	printRecords(recs)
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// Oldest first: export the whole trail in insertion order.
	recs, err := store.RecordsBetween(time.Time{}, time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	return nil
}
