package emailrecords

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/dbx"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.EmailRecord) (int64, error) {
	query := `
		INSERT INTO email_records (hash, salt, last_accessed, is_verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, rec.Hash, rec.Salt, rec.LastAccessed, rec.IsVerified).Scan(&id); err != nil {
		return 0, fmt.Errorf("error performing sql request: %v", err)
	}
	return id, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id int64, at time.Time) (*models.EmailRecord, error) {
	query := `
		UPDATE email_records
		SET last_accessed = $2
		WHERE id = $1
		RETURNING id, hash, salt, last_accessed, is_verified
	`
	rec := &models.EmailRecord{}
	err := r.db.QueryRowContext(ctx, query, id, at).Scan(&rec.ID, &rec.Hash, &rec.Salt, &rec.LastAccessed, &rec.IsVerified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE email_records
		SET is_verified = TRUE, last_accessed = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteStaleUnverified(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM email_records
		WHERE NOT is_verified AND last_accessed < $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
