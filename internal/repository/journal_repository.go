package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/qbank-console/internal/model"
)

// JournalRepository handles submission journal data access.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Insert stores one submission attempt and fills in its ID.
func (r *JournalRepository) Insert(ctx context.Context, rec *model.SubmissionRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO submission_journal
		   (question_id, parent_id, session_id, kind, status, error, submitted_by, created_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		 RETURNING id`,
		rec.QuestionID, rec.ParentID, rec.SessionID, rec.Kind, rec.Status, rec.Error, rec.SubmittedBy, rec.CreatedAt,
	).Scan(&rec.ID)
}

// List returns records matching f, newest first.
func (r *JournalRepository) List(ctx context.Context, f model.JournalFilter) ([]model.SubmissionRecord, error) {
	where, args := journalWhere(f)
	args = append(args, f.Limit)

	query := fmt.Sprintf(
		`SELECT id, question_id, COALESCE(parent_id, ''), COALESCE(session_id, ''), kind, status,
		        COALESCE(error, ''), COALESCE(submitted_by, ''), created_at
		 FROM submission_journal
		 %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d`, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.SubmissionRecord{}
	for rows.Next() {
		var rec model.SubmissionRecord
		if err := rows.Scan(&rec.ID, &rec.QuestionID, &rec.ParentID, &rec.SessionID, &rec.Kind, &rec.Status,
			&rec.Error, &rec.SubmittedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func journalWhere(f model.JournalFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if f.ParentID != "" {
		add("parent_id", f.ParentID)
	}
	if f.SessionID != "" {
		add("session_id", f.SessionID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// Orphans returns succeeded children with no successful parent patch
// recorded after them, oldest first.
func (r *JournalRepository) Orphans(ctx context.Context, limit int) ([]model.OrphanedChild, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.parent_id, c.question_id, COALESCE(c.session_id, ''), COALESCE(c.submitted_by, ''), c.created_at
		 FROM submission_journal c
		 WHERE c.kind = 'child' AND c.status = 'succeeded' AND c.parent_id IS NOT NULL
		   AND NOT EXISTS (
		       SELECT 1 FROM submission_journal p
		       WHERE p.kind = 'parent_patch' AND p.status = 'succeeded'
		         AND p.question_id = c.parent_id AND p.created_at >= c.created_at)
		 ORDER BY c.parent_id, c.created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orphans := []model.OrphanedChild{}
	for rows.Next() {
		var o model.OrphanedChild
		if err := rows.Scan(&o.ParentID, &o.QuestionID, &o.SessionID, &o.SubmittedBy, &o.SubmittedAt); err != nil {
			return nil, err
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}
