package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bloghut/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberTokenRepository(t *testing.T) {
	now := time.Now()

	t.Run("create", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRememberTokenRepository(db)

		mock.ExpectExec(`INSERT INTO remember_tokens \(user_id, token_hash, expires_at\)`).
			WithArgs(1, "hash", now).
			WillReturnResult(sqlmock.NewResult(3, 1))

		token := &models.RememberToken{UserID: 1, TokenHash: "hash", ExpiresAt: now}
		require.NoError(t, repo.Create(context.Background(), token))
		assert.Equal(t, 3, token.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get valid", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRememberTokenRepository(db)

		mock.ExpectQuery(`FROM remember_tokens WHERE token_hash = \? AND expires_at > \?`).
			WithArgs("hash", now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at"}).AddRow(3, 1, "hash", now.Add(time.Hour)))

		token, err := repo.GetValid(context.Background(), "hash", now)
		require.NoError(t, err)
		assert.Equal(t, 1, token.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get expired", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRememberTokenRepository(db)

		mock.ExpectQuery(`FROM remember_tokens`).
			WithArgs("hash", now).
			WillReturnError(sql.ErrNoRows)

		_, err = repo.GetValid(context.Background(), "hash", now)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete by hash and user", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRememberTokenRepository(db)

		mock.ExpectExec(`DELETE FROM remember_tokens WHERE token_hash = \?`).WithArgs("hash").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM remember_tokens WHERE user_id = \?`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, repo.DeleteByHash(context.Background(), "hash"))
		assert.NoError(t, repo.DeleteByUser(context.Background(), 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete expired", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRememberTokenRepository(db)

		mock.ExpectExec(`DELETE FROM remember_tokens WHERE expires_at <= \?`).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 5))

		removed, err := repo.DeleteExpired(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 5, removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete expired error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRememberTokenRepository(db)

		mock.ExpectExec(`DELETE FROM remember_tokens`).WillReturnError(errors.New("database error"))

		_, err = repo.DeleteExpired(context.Background(), now)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPasswordResetRepository(t *testing.T) {
	now := time.Now()

	t.Run("create and get valid", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewPasswordResetRepository(db)

		mock.ExpectExec(`INSERT INTO password_resets`).
			WithArgs(1, "hash", now).
			WillReturnResult(sqlmock.NewResult(9, 1))
		mock.ExpectQuery(`FROM password_resets WHERE token_hash = \? AND used_at IS NULL AND expires_at > \?`).
			WithArgs("hash", now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at"}).AddRow(9, 1, "hash", now.Add(time.Hour)))

		reset := &models.PasswordReset{UserID: 1, TokenHash: "hash", ExpiresAt: now}
		require.NoError(t, repo.Create(context.Background(), reset))
		assert.Equal(t, 9, reset.ID)

		found, err := repo.GetValid(context.Background(), "hash", now)
		require.NoError(t, err)
		assert.Equal(t, 9, found.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mark used twice", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewPasswordResetRepository(db)

		mock.ExpectExec(`UPDATE password_resets SET used_at = \? WHERE id = \? AND used_at IS NULL`).
			WithArgs(now, 9).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE password_resets`).
			WithArgs(now, 9).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.MarkUsed(context.Background(), 9, now))
		assert.ErrorIs(t, repo.MarkUsed(context.Background(), 9, now), models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete expired and by user", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewPasswordResetRepository(db)

		mock.ExpectExec(`DELETE FROM password_resets WHERE expires_at <= \? OR used_at IS NOT NULL`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM password_resets WHERE user_id = \?`).
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		removed, err := repo.DeleteExpired(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.NoError(t, repo.DeleteByUser(context.Background(), 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
