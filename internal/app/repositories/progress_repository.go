package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/db"
)

var progressLogColumns = []string{
	"id", "user_id", "group_id", "challenge_id", "amount", "log_date::text",
	"completed_at", "is_first_finisher", "created_at", "updated_at",
}

// incrementSuffix accumulates into an existing row. completed_at is only
// written while still unset, so it records the first crossing of the goal.
const incrementSuffix = `ON CONFLICT (user_id, group_id, challenge_id, log_date) DO UPDATE SET
	amount = progress_logs.amount + EXCLUDED.amount,
	completed_at = COALESCE(progress_logs.completed_at,
		CASE WHEN progress_logs.amount + EXCLUDED.amount >= ?::int THEN EXCLUDED.updated_at END),
	updated_at = EXCLUDED.updated_at
RETURNING id, user_id, group_id, challenge_id, amount, log_date::text,
	completed_at, is_first_finisher, created_at, updated_at`

// claimFirstFinisherSQL inserts the (group, day) claim and flags the log in a
// single statement; the update only runs when the insert won.
const claimFirstFinisherSQL = `
WITH claim AS (
	INSERT INTO daily_first_finishers (group_id, log_date, user_id, log_id, finished_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (group_id, log_date) DO NOTHING
	RETURNING log_id
)
UPDATE progress_logs
SET is_first_finisher = TRUE, updated_at = $5
WHERE id IN (SELECT log_id FROM claim)
RETURNING id`

// ProgressRepository handles database operations for progress logs
type ProgressRepository struct {
	db *db.PostgresDB
}

// NewProgressRepository creates a new ProgressRepository
func NewProgressRepository(database *db.PostgresDB) *ProgressRepository {
	return &ProgressRepository{db: database}
}

func scanProgressLog(row pgx.Row) (*models.ProgressLog, error) {
	var l models.ProgressLog
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.GroupID,
		&l.ChallengeID,
		&l.Amount,
		&l.LogDate,
		&l.CompletedAt,
		&l.IsFirstFinisher,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func listProgressLogs(ctx context.Context, q db.Querier, query squirrel.SelectBuilder, action string) ([]models.ProgressLog, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, action)
	}
	defer rows.Close()

	logs := []models.ProgressLog{}
	for rows.Next() {
		l, err := scanProgressLog(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, action)
	}
	return logs, nil
}

func userDayQuery(userID, groupID uuid.UUID, date string) squirrel.SelectBuilder {
	return squirrel.Select(progressLogColumns...).
		From(models.TableProgressLogs).
		Where(squirrel.Eq{"user_id": userID, "group_id": groupID}).
		Where("log_date = ?::date", date).
		OrderBy("created_at", "id").
		PlaceholderFormat(squirrel.Dollar)
}

// ListUserDay returns the user's logs of one group and date
func (r *ProgressRepository) ListUserDay(ctx context.Context, userID, groupID uuid.UUID, date string) ([]models.ProgressLog, error) {
	return listProgressLogs(ctx, r.db.Pool, userDayQuery(userID, groupID, date), "list day logs")
}

// ListGroupLogs returns every log of a group, oldest day first
func (r *ProgressRepository) ListGroupLogs(ctx context.Context, groupID uuid.UUID) ([]models.ProgressLog, error) {
	query := squirrel.Select(progressLogColumns...).
		From(models.TableProgressLogs).
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("log_date", "created_at", "id").
		PlaceholderFormat(squirrel.Dollar)
	return listProgressLogs(ctx, r.db.Pool, query, "list group logs")
}

// RunInTx runs fn inside a database transaction
func (r *ProgressRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ProgressTx) error) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &progressTx{tx: tx})
	})
}

// progressTx implements ProgressTx on a pgx transaction
type progressTx struct {
	tx pgx.Tx
}

func (t *progressTx) ListUserDay(ctx context.Context, userID, groupID uuid.UUID, date string) ([]models.ProgressLog, error) {
	return listProgressLogs(ctx, t.tx, userDayQuery(userID, groupID, date), "list day logs")
}

func (t *progressTx) Increment(ctx context.Context, inc models.Increment) (*models.ProgressLog, error) {
	sql, args, err := squirrel.Insert(models.TableProgressLogs).
		Columns("user_id", "group_id", "challenge_id", "log_date", "amount", "completed_at", "created_at", "updated_at").
		Values(
			inc.Key.UserID,
			inc.Key.GroupID,
			inc.Key.ChallengeID,
			squirrel.Expr("?::date", inc.Key.LogDate),
			inc.Delta,
			squirrel.Expr("CASE WHEN ?::int >= ?::int THEN ?::timestamptz END", inc.Delta, inc.Goal, inc.At),
			inc.At,
			inc.At,
		).
		Suffix(incrementSuffix, inc.Goal).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	log, err := scanProgressLog(t.tx.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, storeError(err, "save progress")
	}
	return log, nil
}

func (t *progressTx) ClaimFirstFinisher(ctx context.Context, claim models.FirstFinisherClaim) (bool, error) {
	var id uuid.UUID
	err := t.tx.QueryRow(ctx, claimFirstFinisherSQL,
		claim.GroupID, claim.LogDate, claim.UserID, claim.LogID, claim.FinishedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "claim first finisher")
	}
	return true, nil
}
