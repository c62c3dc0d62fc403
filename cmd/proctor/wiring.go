package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/directory"
	"github.com/pavelanni/proctor/internal/draft"
	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/judge"
	"github.com/pavelanni/proctor/internal/llm"
	"github.com/pavelanni/proctor/internal/model"
	"github.com/pavelanni/proctor/internal/proctor"
	"github.com/pavelanni/proctor/internal/questions"
	"github.com/pavelanni/proctor/internal/session"
	"github.com/pavelanni/proctor/internal/store"
)

// backend is the opened draft store. db is set only for sqlite, which
// also keeps submissions and metadata.
type backend struct {
	drafts draft.Store
	db     *store.Store
}

func (b backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func openBackend(v *viper.Viper) (backend, error) {
	switch kind := strings.ToLower(v.GetString("store")); kind {
	case "sqlite", "":
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return backend{}, fmt.Errorf("open database: %w", err)
		}
		return backend{drafts: db, db: db}, nil
	case "file":
		fs, err := draft.NewFileStore(v.GetString("drafts-dir"))
		if err != nil {
			return backend{}, fmt.Errorf("open drafts dir: %w", err)
		}
		return backend{drafts: fs}, nil
	case "memory":
		return backend{drafts: draft.NewMemoryStore()}, nil
	default:
		return backend{}, fmt.Errorf("unknown store %q", kind)
	}
}

func loadBank(v *viper.Viper) (*questions.Bank, error) {
	paths := v.GetStringSlice("questions")
	if len(paths) == 0 {
		return questions.Default(), nil
	}
	bank, err := questions.Load(paths...)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return bank, nil
}

func loadDirectory(v *viper.Viper) (*directory.Directory, error) {
	path := v.GetString("directory")
	if path == "" {
		return directory.Default(), nil
	}
	dir, err := directory.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	return dir, nil
}

func captureDevice(v *viper.Viper) (proctor.CaptureDevice, error) {
	switch kind := strings.ToLower(v.GetString("capture")); kind {
	case "auto", "":
		return proctor.NewDeviceProbe(), nil
	case "none":
		return proctor.NoDevice{}, nil
	default:
		return nil, fmt.Errorf("unknown capture mode %q", kind)
	}
}

func evaluator(v *viper.Viper) (judge.Evaluator, error) {
	switch kind := strings.ToLower(v.GetString("judge")); kind {
	case "sim", "":
		return nil, nil
	case "llm":
		return llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model")), nil
	default:
		return nil, fmt.Errorf("unknown judge %q", kind)
	}
}

// newManager wires a session manager from configuration. The caller owns
// b and closes the manager.
func newManager(v *viper.Viper, b backend, logger *slog.Logger, onChange func()) (*session.Manager, error) {
	if err := i18n.Init(v.GetString("lang")); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	bank, err := loadBank(v)
	if err != nil {
		return nil, err
	}
	dir, err := loadDirectory(v)
	if err != nil {
		return nil, err
	}
	dev, err := captureDevice(v)
	if err != nil {
		return nil, err
	}
	ev, err := evaluator(v)
	if err != nil {
		return nil, err
	}

	clk := clock.Real()
	cfg := session.Config{
		Clock:     clk,
		Drafts:    draft.NewPersistence(b.drafts, clk, logger),
		Questions: bank,
		Directory: dir,
		Exam: model.ExamConfig{
			Course:      v.GetString("course"),
			TimeLimit:   v.GetDuration("time-limit"),
			FlushOnExit: v.GetBool("flush-on-exit"),
		},
		Device:           dev,
		Evaluator:        ev,
		EvaluatorTimeout: v.GetDuration("llm-timeout"),
		Logger:           logger,
		OnChange:         onChange,
	}
	if b.db != nil {
		cfg.Submissions = b.db
	}
	return session.NewManager(cfg), nil
}
