package audit

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/propmatch-cli/internal/model"
)

// FormatReport writes a human-readable rendering of an audit report.
func FormatReport(out io.Writer, report *model.AuditReport) {
	fmt.Fprintf(out, "Audit of %d documents against %d properties (%s)\n\n",
		report.TotalDocuments,
		report.TotalProperties,
		report.GeneratedAt.Format("2006-01-02 15:04"),
	)

	fmt.Fprintln(out, "Summary")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  exact\t%d\n", report.Stats.Exact)
	fmt.Fprintf(w, "  fuzzy\t%d\n", report.Stats.Fuzzy)
	fmt.Fprintf(w, "  pending\t%d\n", report.Stats.Pending)
	fmt.Fprintf(w, "  mismatch\t%d\n", report.Stats.Mismatch)
	fmt.Fprintf(w, "  extraction failures\t%d\n", report.Stats.ExtractionFailures)
	fmt.Fprintf(w, "  errors\t%d\n", report.Stats.Errors)
	fmt.Fprintf(w, "  needs review\t%d\n", report.Stats.NeedsReview)
	w.Flush()

	if len(report.PropertyMismatches) > 0 {
		fmt.Fprintln(out, "\nUnresolved names")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tDOCUMENTS")
		for _, g := range report.PropertyMismatches {
			fmt.Fprintf(w, "  %s\t%d\n", g.ExtractedName, len(g.DocumentIDs))
		}
		w.Flush()
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations")
		for _, r := range report.Recommendations {
			fmt.Fprintf(out, "  [%s] %s\n", r.Priority, r.Title)
			fmt.Fprintf(out, "      %s %s (%d documents affected)\n", r.Description, r.Action, r.AffectedDocuments)
		}
	}
}

// FormatDocuments writes the per-document audit table.
func FormatDocuments(out io.Writer, entries []model.DocumentAudit) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tFILE\tEXTRACTED\tSTATUS\tCONF\tREVIEW")
	for _, e := range entries {
		review := ""
		if e.NeedsReview {
			review = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			e.DocumentID,
			e.Filename,
			truncate(e.ExtractedName, 40),
			e.Status,
			e.Confidence,
			review,
		)
	}
	w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
