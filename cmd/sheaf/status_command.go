package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sheaf/internal/docstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runLimit int

	cmd := &cobra.Command{
		Use:   "status <case-id>",
		Short: "Show grouping progress for one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseID := args[0]
			return ctx.withStore(cmd.Context(), func(runCtx context.Context, store *docstore.Store) error {
				out := cmd.OutOrStdout()

				stats, err := store.CaseStatsFor(runCtx, caseID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Documents", "Grouped", "Ungrouped", "Groups"},
					[][]string{{
						strconv.Itoa(stats.Documents),
						strconv.Itoa(stats.Grouped),
						strconv.Itoa(stats.Ungrouped),
						strconv.Itoa(stats.Groups),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
				))

				groups, err := store.GroupsByCase(runCtx, caseID)
				if err != nil {
					return err
				}
				if len(groups) > 0 {
					rows := make([][]string, 0, len(groups))
					for _, group := range groups {
						rows = append(rows, []string{
							strconv.FormatInt(group.ID, 10),
							group.BaseName,
							group.DocumentType,
							strconv.Itoa(group.PageCount),
							fmt.Sprintf("%.2f", group.Confidence),
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Group", "Base name", "Type", "Pages", "Confidence"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
					))
				}

				runs, err := store.RecentRuns(runCtx, caseID, runLimit)
				if err != nil {
					return err
				}
				if len(runs) > 0 {
					rows := make([][]string, 0, len(runs))
					for _, run := range runs {
						state := "running"
						if run.CompletedAt != nil {
							state = "completed " + run.CompletedAt.Local().Format(time.RFC3339)
						}
						rows = append(rows, []string{
							run.RunID,
							string(run.Step),
							strconv.Itoa(run.Pass),
							state,
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Run", "Step", "Pass", "State"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&runLimit, "runs", 5, "Number of recent runs to show")
	return cmd
}
