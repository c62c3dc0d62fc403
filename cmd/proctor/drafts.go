package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pavelanni/proctor/internal/draft"
)

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect saved answer drafts",
	}
	cmd.PersistentFlags().AddFlagSet(storeFlags())
	cmd.PersistentFlags().AddFlagSet(logFlags())

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved drafts",
		RunE:  runDraftsList,
	}
	show := &cobra.Command{
		Use:   "show QUESTION_ID",
		Short: "Print one saved draft",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftsShow,
	}
	clearCmd := &cobra.Command{
		Use:   "clear QUESTION_ID",
		Short: "Delete one saved draft",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftsClear,
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Export drafts and submissions as JSON",
		RunE:  runDraftsExport,
	}
	export.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")

	cmd.AddCommand(list, show, clearCmd, export)
	return cmd
}

func openDraftsBackend(cmd *cobra.Command) (backend, error) {
	v := viperForCmd(cmd)
	if _, err := setupLogging(v, os.Stderr); err != nil {
		return backend{}, err
	}
	if v.GetString("store") == "memory" {
		return backend{}, errors.New("memory store keeps no drafts between runs")
	}
	return openBackend(v)
}

func runDraftsList(cmd *cobra.Command, _ []string) error {
	b, err := openDraftsBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	recs, err := b.drafts.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list drafts: %w", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tSAVED\tBYTES\tOK")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%v\n",
			strings.TrimPrefix(r.Key, draft.KeyPrefix), r.SavedAt.Local().Format("2006-01-02 15:04:05"), len(r.Text), r.Verify())
	}
	return tw.Flush()
}

func runDraftsShow(cmd *cobra.Command, args []string) error {
	b, err := openDraftsBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	rec, err := b.drafts.Get(cmd.Context(), draft.Key(args[0]))
	if err != nil {
		return fmt.Errorf("get draft %s: %w", args[0], err)
	}
	if !rec.Verify() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: digest mismatch, draft would not be restored")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rec.Text)
	return err
}

func runDraftsClear(cmd *cobra.Command, args []string) error {
	b, err := openDraftsBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.drafts.Delete(cmd.Context(), draft.Key(args[0])); err != nil {
		return fmt.Errorf("delete draft %s: %w", args[0], err)
	}
	return nil
}

func runDraftsExport(cmd *cobra.Command, _ []string) error {
	b, err := openDraftsBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	var export any
	if b.db != nil {
		export, err = b.db.ExportAll(cmd.Context())
	} else {
		export, err = b.drafts.List(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
