package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertSubscriberQuery = `(?s)^INSERT\s+INTO\s+subscriptions\s*\(id,\s*email,\s*name,\s*subscribed_at,\s*status\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`
	insertTokenQuery      = `(?s)^INSERT\s+INTO\s+subscription_tokens\s*\(subscription_token,\s*subscriber_id\)\s*VALUES\s*\(\$1,\s*\$2\)\s*$`
	tokenLookupQuery      = `(?s)^SELECT\s+subscriber_id\s+FROM\s+subscription_tokens\s+WHERE\s+subscription_token\s*=\s*\$1\s*$`
	confirmQuery          = `(?s)^UPDATE\s+subscriptions\s+SET\s+status\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s*$`
	confirmedQuery        = `(?s)^SELECT\s+id,\s*email,\s*name\s+FROM\s+subscriptions\s+WHERE\s+status\s*=\s*\$1.*$`
	credentialQuery       = `(?s)^SELECT\s+user_id,\s*username,\s*password_hash\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	insertUserQuery       = `(?s)^INSERT\s+INTO\s+users\s*\(user_id,\s*username,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
)

func newStorageWithMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

func newSubscriber() domain.NewSubscriber {
	return domain.NewSubscriber{Email: "ursula@example.com", Name: "Ursula"}
}

func TestWithTx_Commit(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertSubscriberQuery).
		WithArgs(sqlmock.AnyArg(), "ursula@example.com", "Ursula", sqlmock.AnyArg(), "pending_confirmation").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertTokenQuery).
		WithArgs("token123", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var id domain.SubscriberId
	err := s.WithTx(context.Background(), func(tx storage.SubscriberTx) error {
		var err error
		id, err = tx.SaveSubscriber(context.Background(), newSubscriber())
		if err != nil {
			return err
		}
		return tx.SaveSubscriptionToken(context.Background(), "token123", id)
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertSubscriberQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	sendErr := errors.New("smtp down")
	err := s.WithTx(context.Background(), func(tx storage.SubscriberTx) error {
		if _, err := tx.SaveSubscriber(context.Background(), newSubscriber()); err != nil {
			return err
		}
		return sendErr
	})
	assert.ErrorIs(t, err, sendErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = s.WithTx(context.Background(), func(tx storage.SubscriberTx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailure(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := s.WithTx(context.Background(), func(tx storage.SubscriberTx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
}

func TestWithTx_BeginFailure(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := s.WithTx(context.Background(), func(tx storage.SubscriberTx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestSaveSubscriber_DBError(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertSubscriberQuery).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "subscriptions_email_key"`))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx storage.SubscriberTx) error {
		_, err := tx.SaveSubscriber(context.Background(), newSubscriber())
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert subscriber")
}

func TestSubscriberIdByToken(t *testing.T) {
	s, mock := newStorageWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(tokenLookupQuery).
		WithArgs("token123").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id"}).AddRow(id.String()))

	got, err := s.SubscriberIdByToken(context.Background(), "token123")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSubscriberIdByToken_NotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(tokenLookupQuery).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.SubscriberIdByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)
}

func TestSubscriberIdByToken_DBError(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(tokenLookupQuery).
		WillReturnError(errors.New("db down"))

	_, err := s.SubscriberIdByToken(context.Background(), "token123")
	require.Error(t, err)
	assert.False(t, internal_errors.IsNotFound(err))
}

func TestConfirmSubscriber(t *testing.T) {
	s, mock := newStorageWithMock(t)
	id := uuid.New()

	mock.ExpectExec(confirmQuery).
		WithArgs("confirmed", id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.ConfirmSubscriber(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSubscriber_NoRows(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(confirmQuery).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.ConfirmSubscriber(context.Background(), uuid.New())
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)
}

func TestConfirmedSubscribers(t *testing.T) {
	s, mock := newStorageWithMock(t)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(confirmedQuery).
		WithArgs("confirmed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).
			AddRow(a.String(), "a@example.com", "A").
			AddRow(b.String(), "not-an-email", "B"))

	rows, err := s.ConfirmedSubscribers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.SubscriberRow{
		{Id: a, Email: "a@example.com", Name: "A"},
		{Id: b, Email: "not-an-email", Name: "B"},
	}, rows)
}

func TestConfirmedSubscribers_RowError(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(confirmedQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).
			AddRow(uuid.New().String(), "a@example.com", "A").
			RowError(0, errors.New("network")))

	_, err := s.ConfirmedSubscribers(context.Background())
	assert.Error(t, err)
}

func TestCredential(t *testing.T) {
	s, mock := newStorageWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(credentialQuery).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "password_hash"}).
			AddRow(id.String(), "admin", "$argon2id$..."))

	cred, err := s.Credential(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.Credential{UserId: id, Username: "admin", PasswordHash: "$argon2id$..."}, cred)
}

func TestCredential_NotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(credentialQuery).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Credential(context.Background(), "nobody")
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)
}

func TestSaveCredential(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "admin", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.SaveCredential(context.Background(), "admin", "hash")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
}
