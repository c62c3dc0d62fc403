package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/proctor/internal/draft"
	"github.com/pavelanni/proctor/internal/model"
)

// QuestionExport bundles everything stored for one question.
type QuestionExport struct {
	QuestionID  string             `json:"question_id"`
	Draft       *draft.Record      `json:"draft,omitempty"`
	Submissions []model.Submission `json:"submissions,omitempty"`
}

// ExportAll groups drafts and submissions by question id, ordered by id.
func (s *Store) ExportAll(ctx context.Context) ([]QuestionExport, error) {
	drafts, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	subs, err := s.ListSubmissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	byQuestion := make(map[string]*QuestionExport)
	var order []string
	get := func(id string) *QuestionExport {
		qe, ok := byQuestion[id]
		if !ok {
			qe = &QuestionExport{QuestionID: id}
			byQuestion[id] = qe
			order = append(order, id)
		}
		return qe
	}

	for i := range drafts {
		id := strings.TrimPrefix(drafts[i].Key, draft.KeyPrefix)
		get(id).Draft = &drafts[i]
	}
	for _, sub := range subs {
		qe := get(sub.QuestionID)
		qe.Submissions = append(qe.Submissions, sub)
	}

	slices.Sort(order)
	results := make([]QuestionExport, 0, len(order))
	for _, id := range order {
		results = append(results, *byQuestion[id])
	}
	return results, nil
}
