package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/redditflow/internal/models"
)

type PostDestinationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostDestination, error)
}

type postDestinationRepository struct {
	db *sql.DB
}

func NewPostDestinationRepository(db *sql.DB) PostDestinationRepository {
	return &postDestinationRepository{db: db}
}

func (r *postDestinationRepository) Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) error {
	query := `
		INSERT INTO post_destinations (post_id, account_id, subreddit, flair_id, position)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`
	args := []any{d.PostID, d.AccountID, d.Subreddit, d.FlairID, d.Position}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postDestinationRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostDestination, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, account_id, subreddit, COALESCE(flair_id, ''), position, created_at
		 FROM post_destinations WHERE post_id = $1 ORDER BY position ASC`, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var destinations []*models.PostDestination
	for rows.Next() {
		var d models.PostDestination
		if err := rows.Scan(&d.PostID, &d.AccountID, &d.Subreddit, &d.FlairID, &d.Position, &d.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		destinations = append(destinations, &d)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return destinations, nil
}
