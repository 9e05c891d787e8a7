package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/redditflow/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, bool, error)
	Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Remove(ctx context.Context, id int64) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `u.id, u.google_id, u.email, u.name, u.profile_picture,
	(SELECT count(*) FROM accounts a WHERE a.user_id = u.id AND a.platform = 'reddit'),
	u.created_at, u.updated_at`

func (r *userRepository) getBy(ctx context.Context, where string, arg any) (*models.User, bool, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg).
		Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.ProfilePicture,
			&user.RedditAccounts, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &user, true, nil
}

// GetByID loads the user along with how many Reddit accounts they connected.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	return r.getBy(ctx, "u.id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return r.getBy(ctx, "u.email = $1", email)
}

// Create inserts the user, or fills in the Google identity of an existing row
// with the same email, so two first logins racing each other end on one user.
func (r *userRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	query := `
		INSERT INTO users (google_id, email, name, profile_picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET google_id = COALESCE(NULLIF(users.google_id, ''), EXCLUDED.google_id),
			updated_at = now()
		RETURNING id
	`
	args := []any{user.GoogleID, user.Email, user.Name, user.ProfilePicture}

	var err error
	var id int64
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

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET google_id = $1,
			name = $2,
			profile_picture = $3,
			updated_at = now()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, user.GoogleID, user.Name, user.ProfilePicture, user.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Remove deletes the user; connected accounts and posts go with it.
func (r *userRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
