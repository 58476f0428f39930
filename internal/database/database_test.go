package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing_RetriesUntilUp(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	db := sqlx.NewDb(raw, "mysql")
	opts := Options{Retries: 3, RetryBackoff: time.Millisecond}
	require.NoError(t, Ping(context.Background(), db, opts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing_GivesUp(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectPing().WillReturnError(errors.New("down"))
	}

	db := sqlx.NewDb(raw, "mysql")
	opts := Options{Retries: 1, RetryBackoff: time.Millisecond}
	assert.Error(t, Ping(context.Background(), db, opts))
}
