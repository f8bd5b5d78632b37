package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/propmatch-cli/internal/audit"
)

var (
	auditLimit       int
	auditConcurrency int
	auditRate        float64
	auditPersist     bool
	auditJSON        bool
	auditDocuments   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Re-validate the stored document corpus",
	Long:  "Runs every stored document back through extraction and validation, aggregates match statistics and emits remediation recommendations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := auditConcurrency
		if concurrency == 0 {
			concurrency = cfg.Audit.Concurrency
		}
		ratePerSec := auditRate
		if ratePerSec == 0 {
			ratePerSec = cfg.Audit.RatePerSec
		}

		report, err := env.auditor.Run(ctx, audit.Options{
			Limit:       auditLimit,
			Concurrency: concurrency,
			RatePerSec:  ratePerSec,
			Persist:     auditPersist,
		})
		if err != nil {
			return err
		}

		if auditJSON {
			return printJSON(report)
		}

		audit.FormatReport(os.Stdout, report)
		if auditDocuments {
			os.Stdout.WriteString("\n")
			audit.FormatDocuments(os.Stdout, report.Documents)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "audit at most N documents (0 = all)")
	auditCmd.Flags().IntVar(&auditConcurrency, "concurrency", 0, "worker count (default from config)")
	auditCmd.Flags().Float64Var(&auditRate, "rate", 0, "documents per second (0 = unthrottled)")
	auditCmd.Flags().BoolVar(&auditPersist, "persist", false, "persist a fresh outcome per document")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "emit the report as JSON")
	auditCmd.Flags().BoolVar(&auditDocuments, "documents", false, "include the per-document table")
	rootCmd.AddCommand(auditCmd)
}
