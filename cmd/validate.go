package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/pipeline"
)

var (
	validatePropertyID   int64
	validateFilenameOnly bool
	validateDryRun       bool
	validateJSON         bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a document against the property registry",
	Long:  "Extracts the property name from a document, resolves it against the registry and records the validation outcome.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := args[0]
		var content string
		if !validateFilenameOnly {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read document %s", path)
			}
			content = string(data)
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		doc := model.Document{
			ID:         uuid.NewString(),
			Filename:   filepath.Base(path),
			Content:    content,
			UploadedAt: time.Now().UTC(),
		}
		if validatePropertyID > 0 {
			doc.TargetPropertyID = &validatePropertyID
		}

		var res pipeline.Result
		if validateDryRun {
			res = env.orch.DryRun(ctx, doc)
		} else {
			if err := env.store.UpsertDocument(ctx, &doc); err != nil {
				return err
			}
			res, err = env.orch.ValidateDocument(ctx, doc)
			if err != nil {
				return err
			}
		}

		if validateJSON {
			return printJSON(res)
		}

		printResult(doc, res)
		return nil
	},
}

func printResult(doc model.Document, res pipeline.Result) {
	fmt.Printf("document:   %s (%s)\n", doc.Filename, doc.ID)
	fmt.Printf("extracted:  %s\n", orDash(res.Outcome.ExtractedName))
	fmt.Printf("status:     %s\n", res.Outcome.Status)
	fmt.Printf("match type: %s\n", res.Outcome.MatchType)
	fmt.Printf("confidence: %.2f\n", res.Outcome.Confidence)
	if res.Outcome.MatchedPropertyID != nil {
		fmt.Printf("property:   %d %s\n", *res.Outcome.MatchedPropertyID, res.Outcome.DatabaseName)
	}
	if res.Outcome.Message != "" {
		fmt.Printf("message:    %s\n", res.Outcome.Message)
	}
	if len(res.Outcome.Suggestions) > 0 {
		fmt.Println("suggestions:")
		for _, s := range res.Outcome.Suggestions {
			fmt.Printf("  %s\n", s)
		}
	}
	fmt.Printf("action:     %s\n", res.Action)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	validateCmd.Flags().Int64Var(&validatePropertyID, "property-id", 0, "expected property id (target validation)")
	validateCmd.Flags().BoolVar(&validateFilenameOnly, "filename-only", false, "skip content extraction, use the filename only")
	validateCmd.Flags().BoolVar(&validateDryRun, "dry-run", false, "do not persist the document or outcome")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "emit the result as JSON")
	rootCmd.AddCommand(validateCmd)
}
