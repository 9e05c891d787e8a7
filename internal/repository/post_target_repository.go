package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/redditflow/internal/models"
)

// PostTargetRepository is an append-only log of publish attempts.
type PostTargetRepository interface {
	Create(ctx context.Context, pt *models.PostTarget) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error)
	LatestByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error)
}

type postTargetRepository struct {
	db *sql.DB
}

func NewPostTargetRepository(db *sql.DB) PostTargetRepository {
	return &postTargetRepository{db: db}
}

const postTargetColumns = `id, post_id, COALESCE(account_id, 0), subreddit, COALESCE(flair_id, ''), status,
	COALESCE(platform_post_id, ''), COALESCE(error_message, ''), published_at, created_at`

func (r *postTargetRepository) Create(ctx context.Context, pt *models.PostTarget) (int64, error) {
	query := `
		INSERT INTO post_targets (post_id, account_id, subreddit, flair_id, status, platform_post_id, error_message, published_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING id
	`
	var publishedAt sql.NullTime
	if pt.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: *pt.PublishedAt, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, pt.PostID, pt.AccountID, pt.Subreddit, pt.FlairID, pt.Status,
		pt.PlatformPostID, pt.ErrorMessage, publishedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postTargetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	return r.query(ctx,
		`SELECT `+postTargetColumns+` FROM post_targets WHERE post_id = $1 ORDER BY created_at ASC, id ASC`, postID)
}

// LatestByPostID returns the most recent attempt per (account, subreddit).
func (r *postTargetRepository) LatestByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	return r.query(ctx,
		`SELECT DISTINCT ON (account_id, subreddit) `+postTargetColumns+`
		 FROM post_targets WHERE post_id = $1
		 ORDER BY account_id, subreddit, created_at DESC, id DESC`, postID)
}

func (r *postTargetRepository) query(ctx context.Context, query string, args ...any) ([]*models.PostTarget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PostTarget
	for rows.Next() {
		var (
			pt          models.PostTarget
			publishedAt sql.NullTime
		)
		err := rows.Scan(&pt.ID, &pt.PostID, &pt.AccountID, &pt.Subreddit, &pt.FlairID, &pt.Status,
			&pt.PlatformPostID, &pt.ErrorMessage, &publishedAt, &pt.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if publishedAt.Valid {
			pt.PublishedAt = &publishedAt.Time
		}
		targets = append(targets, &pt)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return targets, nil
}
