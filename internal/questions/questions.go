// Package questions loads the exam question bank.
//
// Banks are lists of questions authored as JSON, JSONC (JSON with comments
// and trailing commas) or YAML. The format is picked by file extension.
// When no file is given the embedded default bank is used.
package questions

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/proctor/internal/model"
)

//go:embed default.yaml
var defaultBank []byte

// ErrUnknownQuestion is returned by Bank.Get for ids not in the bank.
var ErrUnknownQuestion = errors.New("unknown question")

// Bank is an immutable, ordered set of questions.
type Bank struct {
	questions []model.ExamQuestion
	byID      map[string]int
}

// Default returns the embedded bank.
func Default() *Bank {
	qs, err := Parse(defaultBank, ".yaml")
	if err != nil {
		panic("questions: embedded bank: " + err.Error())
	}
	b, err := NewBank(qs)
	if err != nil {
		panic("questions: embedded bank: " + err.Error())
	}
	return b
}

// Load reads every file in paths into one bank. With no paths it returns
// the embedded default bank.
func Load(paths ...string) (*Bank, error) {
	if len(paths) == 0 {
		return Default(), nil
	}
	var all []model.ExamQuestion
	for _, path := range paths {
		qs, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded questions", "path", path, "count", len(qs))
		all = append(all, qs...)
	}
	return NewBank(all)
}

// ReadFile parses one bank file.
func ReadFile(path string) ([]model.ExamQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	qs, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qs, nil
}

// Parse decodes a bank in the format named by ext (".json", ".jsonc",
// ".yaml" or ".yml").
func Parse(data []byte, ext string) ([]model.ExamQuestion, error) {
	var qs []model.ExamQuestion
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &qs); err != nil {
			return nil, fmt.Errorf("parse questions: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &qs); err != nil {
			return nil, fmt.Errorf("parse questions: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported question file extension %q", ext)
	}
	return qs, nil
}

// NewBank validates qs and builds a bank preserving their order.
func NewBank(qs []model.ExamQuestion) (*Bank, error) {
	if len(qs) == 0 {
		return nil, errors.New("question bank is empty")
	}
	b := &Bank{byID: make(map[string]int, len(qs))}
	for i, q := range qs {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}
	return b, nil
}

func validate(q model.ExamQuestion) error {
	switch {
	case q.ID == "":
		return errors.New("missing id")
	case q.Title == "":
		return fmt.Errorf("%s: missing title", q.ID)
	case !q.Difficulty.Valid():
		return fmt.Errorf("%s: unknown difficulty %q", q.ID, q.Difficulty)
	case q.Points <= 0:
		return fmt.Errorf("%s: points must be positive, got %d", q.ID, q.Points)
	}
	return nil
}

// Get returns the question with the given id.
func (b *Bank) Get(id string) (model.ExamQuestion, error) {
	i, ok := b.byID[id]
	if !ok {
		return model.ExamQuestion{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
	}
	return b.questions[i], nil
}

// List returns the questions in bank order.
func (b *Bank) List() []model.ExamQuestion {
	return append([]model.ExamQuestion(nil), b.questions...)
}

// First returns the first question of the bank.
func (b *Bank) First() model.ExamQuestion {
	return b.questions[0]
}
