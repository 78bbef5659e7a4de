package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sheaf/internal/docstore"
	"sheaf/internal/grouping"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <case-id>",
		Short: "Run the full grouping flow for one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd.Context(), func(runCtx context.Context, engine *grouping.Engine, _ *docstore.Store) error {
				summary, err := engine.RunCase(runCtx, args[0])
				if err != nil {
					return err
				}
				printSummary(cmd, summary)
				return nil
			})
		},
	}
}

func newDocumentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "document <document-id>",
		Short: "Group one newly classified document against recent candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}
			return ctx.withEngine(cmd.Context(), func(runCtx context.Context, engine *grouping.Engine, _ *docstore.Store) error {
				summary, err := engine.RunDocument(runCtx, docID)
				if err != nil {
					return err
				}
				printSummary(cmd, summary)
				return nil
			})
		},
	}
}

func printSummary(cmd *cobra.Command, summary *grouping.Summary) {
	rows := [][]string{
		{"Passes", strconv.Itoa(summary.Passes)},
		{"Documents processed", strconv.Itoa(summary.DocumentsProcessed)},
		{"Documents deferred", strconv.Itoa(summary.DocumentsSkipped)},
		{"Groups created", strconv.Itoa(summary.GroupsCreated)},
		{"Groups updated", strconv.Itoa(summary.GroupsUpdated)},
		{"Continuations linked", strconv.Itoa(summary.ContinuationsLinked)},
		{"Oracle calls", strconv.Itoa(summary.OracleCalls)},
		{"Oracle failures", strconv.Itoa(summary.OracleFailures)},
	}
	if summary.CeilingReached {
		rows = append(rows, []string{"Pass ceiling", "reached"})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}
