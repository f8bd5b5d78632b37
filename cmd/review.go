package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/propmatch-cli/internal/model"
)

var (
	reviewReviewer      string
	reviewCorrectedName string
	reviewListLimit     int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Adjudicate validation outcomes",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outcomes waiting for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		outcomes, err := env.store.ListOutcomesNeedingReview(ctx, reviewListLimit)
		if err != nil {
			return err
		}

		formatOutcomes(os.Stdout, outcomes)
		return nil
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <document-id>",
	Short: "Approve a document's match as-is",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.orch.Approve(ctx, args[0], reviewReviewer)
	},
}

var reviewCorrectCmd = &cobra.Command{
	Use:   "correct <document-id> <property-id>",
	Short: "Attribute a document to the correct property",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		propertyID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid property id %q", args[1])
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.orch.Correct(ctx, args[0], propertyID, reviewCorrectedName, reviewReviewer)
	},
}

var reviewAddAliasCmd = &cobra.Command{
	Use:   "add-alias <document-id> <property-id> <alias>",
	Short: "Resolve a document by registering its extracted name as an alias",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		propertyID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid property id %q", args[1])
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.orch.AddAliasForDocument(ctx, args[0], propertyID, args[2], reviewReviewer)
	},
}

func formatOutcomes(out io.Writer, outcomes []model.ValidationOutcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "no outcomes waiting for review")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tEXTRACTED\tSTATUS\tCONF\tMESSAGE")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			o.DocumentID,
			o.ExtractedName,
			o.Status,
			o.Confidence,
			o.Message,
		)
	}
	w.Flush()
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewReviewer, "reviewer", "", "reviewer identity recorded on the outcome")
	reviewCorrectCmd.Flags().StringVar(&reviewCorrectedName, "name", "", "corrected property name")
	reviewListCmd.Flags().IntVar(&reviewListLimit, "limit", 50, "max outcomes to list")

	reviewCmd.AddCommand(reviewListCmd, reviewApproveCmd, reviewCorrectCmd, reviewAddAliasCmd)
	rootCmd.AddCommand(reviewCmd)
}
