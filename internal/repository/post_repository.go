package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/redditflow/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	ClaimScheduled(ctx context.Context, id int64, now time.Time) (*models.Post, error)
	UpdateStatus(ctx context.Context, id int64, status, errorMessage string) error
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, title, content, media_urls, status, scheduled_for, published_at, error_message, created_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		post         models.Post
		mediaURLs    pq.StringArray
		scheduledFor sql.NullTime
		publishedAt  sql.NullTime
		errorMessage sql.NullString
	)
	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &mediaURLs, &post.Status,
		&scheduledFor, &publishedAt, &errorMessage, &post.CreatedAt)
	if err != nil {
		return nil, err
	}
	post.MediaURLs = []string(mediaURLs)
	if scheduledFor.Valid {
		post.ScheduledFor = &scheduledFor.Time
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	post.ErrorMessage = errorMessage.String
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, title, content, media_urls, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var scheduledFor sql.NullTime
	if post.ScheduledFor != nil {
		scheduledFor = sql.NullTime{Time: *post.ScheduledFor, Valid: true}
	}
	mediaURLs := post.MediaURLs
	if mediaURLs == nil {
		mediaURLs = []string{}
	}
	args := []any{post.UserID, post.Title, post.Content, pq.Array(mediaURLs), post.Status, scheduledFor}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// GetByID returns nil, nil when the post does not exist.
func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListDue returns scheduled posts whose time has come, earliest first.
func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE status = $1 AND scheduled_for <= $2
		 ORDER BY scheduled_for ASC, id ASC
		 LIMIT $3`, models.PostStatusScheduled, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ClaimScheduled moves a due post from scheduled to pending and returns it.
// It returns nil, nil when another runner already claimed the post or it is
// not due, so exactly one caller proceeds per post.
func (r *postRepository) ClaimScheduled(ctx context.Context, id int64, now time.Time) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE posts SET status = $2
		 WHERE id = $1 AND status = $3 AND scheduled_for <= $4
		 RETURNING `+postColumns, id, models.PostStatusPending, models.PostStatusScheduled, now)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id int64, status, errorMessage string) error {
	query := `
		UPDATE posts
		SET status = $1,
			error_message = NULLIF($2, ''),
			published_at = CASE WHEN $1 = 'published' THEN now() ELSE published_at END
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, errorMessage, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	var result int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2", postID, userID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}
