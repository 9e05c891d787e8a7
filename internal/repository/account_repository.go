package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/redditflow/internal/models"
)

// ErrTokenConflict means the stored access token changed since it was read,
// i.e. another runner refreshed it first.
var ErrTokenConflict = errors.New("account token was updated concurrently")

type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, acc *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.Account, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	SetToken(ctx context.Context, accountID int64, oldAccessToken string, acc *models.Account) error
	Remove(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, user_id, platform, account_id, account_name, access_token, refresh_token,
	COALESCE(token_expires_at, 'epoch'::timestamptz), created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var acc models.Account
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Platform, &acc.AccountID, &acc.AccountName,
		&acc.AccessToken, &acc.RefreshToken, &acc.TokenExpiresAt, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if acc.TokenExpiresAt.Unix() == 0 {
		acc.TokenExpiresAt = time.Time{}
	}
	return &acc, nil
}

func (r *accountRepository) Create(ctx context.Context, tx *sql.Tx, acc *models.Account) (int64, error) {
	query := `
		INSERT INTO accounts (user_id, platform, account_id, account_name, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, platform, account_id) DO UPDATE
		SET account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = now()
		RETURNING id
	`
	args := []any{acc.UserID, acc.Platform, acc.AccountID, acc.AccountName, acc.AccessToken, acc.RefreshToken, nullTime(acc.TokenExpiresAt)}

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

// GetByID returns nil, nil when the account does not exist.
func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return acc, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// ListExpiring returns accounts whose token expires before the given time,
// already expired ones included.
func (r *accountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE token_expires_at IS NOT NULL AND token_expires_at < $1
		 ORDER BY token_expires_at ASC`, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]*models.Account, error) {
	var accounts []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	var result int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2", accountID, userID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

// SetToken stores refreshed credentials only if the row still holds
// oldAccessToken. Empty fields in acc keep their stored value.
func (r *accountRepository) SetToken(ctx context.Context, accountID int64, oldAccessToken string, acc *models.Account) error {
	query := `
		UPDATE accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2
	`
	result, err := r.db.ExecContext(ctx, query, accountID, oldAccessToken, acc.AccessToken, acc.RefreshToken, nullTime(acc.TokenExpiresAt))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return ErrTokenConflict
	}
	return nil
}

func (r *accountRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
