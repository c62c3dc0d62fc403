package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/store"
	"github.com/pavelanni/proctor/internal/tui"
)

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take an exam in the terminal workspace",
		RunE:  runTake,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "", "Directory user id (default: last user)")
	f.String("question", "", "Question id (default: last or first question)")
	f.AddFlagSet(storeFlags())
	f.AddFlagSet(bankFlags())
	f.AddFlagSet(examFlags())
	f.AddFlagSet(logFlags())
	return cmd
}

func runTake(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("take needs an interactive terminal; use serve for the HTTP API")
	}

	v := viperForCmd(cmd)
	// The workspace owns the screen; logs go to --log-file or nowhere.
	closeLog, err := setupLogging(v, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.Default()

	b, err := openBackend(v)
	if err != nil {
		return err
	}
	defer b.Close()

	wake := tui.NewWake()
	mgr, err := newManager(v, b, logger, wake.Signal)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx := i18n.WithLocalizer(cmd.Context(), i18n.NewLocalizer(v.GetString("lang")))
	userID, questionID := resolveTarget(ctx, v.GetString("user"), v.GetString("question"), b.db)
	if userID == "" {
		return errors.New("no user given; pass --user")
	}
	if questionID == "" {
		questionID = mgr.Questions().First().ID
	}

	if _, err := mgr.Login(ctx, userID); err != nil {
		return fmt.Errorf("login %s: %w", userID, err)
	}
	sess, err := mgr.EnterExam(ctx, questionID)
	if err != nil {
		return fmt.Errorf("enter exam %s: %w", questionID, err)
	}
	rememberTarget(ctx, b.db, userID, questionID)

	logger.Info("starting workspace", "user", userID, "question", questionID)
	program := tea.NewProgram(tui.New(ctx, mgr, sess, wake), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run workspace: %w", err)
	}
	return nil
}

// resolveTarget fills missing ids from the last run recorded in db.
func resolveTarget(ctx context.Context, userID, questionID string, db *store.Store) (string, string) {
	if db == nil {
		return userID, questionID
	}
	if userID == "" {
		if last, err := db.GetMetadata(ctx, store.MetaLastUser); err == nil {
			userID = last
		}
	}
	if questionID == "" {
		if last, err := db.GetMetadata(ctx, store.MetaLastQuestion); err == nil {
			questionID = last
		}
	}
	return userID, questionID
}

func rememberTarget(ctx context.Context, db *store.Store, userID, questionID string) {
	if db == nil {
		return
	}
	for k, val := range map[string]string{store.MetaLastUser: userID, store.MetaLastQuestion: questionID} {
		if err := db.SetMetadata(ctx, k, val); err != nil {
			slog.Warn("save metadata", "key", k, "error", err)
		}
	}
}
