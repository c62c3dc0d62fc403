package store

import (
	"context"

	"github.com/pavelanni/proctor/internal/model"
)

// RecordSubmission stores a final answer and returns its row id.
func (s *Store) RecordSubmission(ctx context.Context, sub model.Submission) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (user_id, question_id, text, digest, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.QuestionID, sub.Text, sub.Digest, sub.Status, sub.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSubmissions returns submissions in insertion order. An empty userID
// lists every user.
func (s *Store) ListSubmissions(ctx context.Context, userID string) ([]model.Submission, error) {
	query := `SELECT id, user_id, question_id, text, digest, status, submitted_at FROM submissions`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.QuestionID, &sub.Text, &sub.Digest, &sub.Status, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
