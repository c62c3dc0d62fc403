package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pavelanni/proctor/internal/i18n"
)

func questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Validate and list the question bank",
		RunE:  runQuestions,
	}
	cmd.Flags().AddFlagSet(bankFlags())
	cmd.Flags().AddFlagSet(logFlags())
	return cmd
}

func runQuestions(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	if _, err := setupLogging(v, os.Stderr); err != nil {
		return err
	}
	if err := i18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	bank, err := loadBank(v)
	if err != nil {
		return err
	}

	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer(v.GetString("lang")))
	qs := bank.List()
	fmt.Fprintln(cmd.OutOrStdout(), i18n.Tp(ctx, "QuestionsAvailable", len(qs)))

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDIFFICULTY\tPOINTS\tCASES")
	for _, q := range qs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", q.ID, q.Title, q.Difficulty, q.Points, len(q.TestCases))
	}
	return tw.Flush()
}
