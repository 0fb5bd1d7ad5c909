package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/forgemedia/portal/internal/portal"
)

var orderCols = []string{
	"id", "service_type", "original_filename", "storage_key", "file_size", "file_type",
	"client_id", "instructions", "status", "assigned_worker", "transcription_handle", "transcript",
	"created_at", "started_at", "completed_at",
}

func pendingRow(created time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(orderCols).AddRow(
		"ORD-1", portal.ServiceCaptionsCleanup, "meeting.srt", "uploads/ORD-1/u1.srt", int64(2048), "srt",
		"demo-client-1", "", portal.StatusPending, "", "", "",
		created, (*time.Time)(nil), (*time.Time)(nil),
	)
}

func TestOrderStore_CreateInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "orders")
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	order := portal.Order{
		ID:               "ORD-1",
		ServiceType:      portal.ServiceCaptionsCleanup,
		OriginalFilename: "meeting.srt",
		StorageKey:       "uploads/ORD-1/u1.srt",
		FileSize:         2048,
		FileType:         "srt",
		ClientID:         "demo-client-1",
		Status:           portal.StatusPending,
		CreatedAt:        created,
	}

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			order.ID, order.ServiceType, order.OriginalFilename, order.StorageKey,
			order.FileSize, order.FileType, order.ClientID, order.Instructions,
			order.Status, order.AssignedWorker, order.TranscriptionHandle, order.Transcript,
			order.CreatedAt, (*time.Time)(nil), (*time.Time)(nil),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), order))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStore_GetNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "orders")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WithArgs("ORD-missing").WillReturnError(pgx.ErrNoRows)

	_, err = store.Get(context.Background(), "ORD-missing")
	require.ErrorIs(t, err, portal.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStore_UpdateLocksAppliesAndCommits(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "orders")
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("ORD-1").WillReturnRows(pendingRow(created))
	mock.ExpectExec("UPDATE orders SET").
		WithArgs(
			"ORD-1", "uploads/ORD-1/u1.srt", int64(2048), "",
			portal.StatusAssigned, "alice", "", "",
			(*time.Time)(nil), (*time.Time)(nil),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated, err := store.Update(context.Background(), "ORD-1", func(o *portal.Order) error {
		if err := o.Transition(portal.StatusAssigned, created); err != nil {
			return err
		}
		o.AssignedWorker = "alice"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, portal.StatusAssigned, updated.Status)
	require.Equal(t, "alice", updated.AssignedWorker)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStore_UpdateMutationErrorRollsBack(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "orders")
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("ORD-1").WillReturnRows(pendingRow(created))
	mock.ExpectRollback()

	_, err = store.Update(context.Background(), "ORD-1", func(o *portal.Order) error {
		return o.Transition(portal.StatusReady, created)
	})
	require.ErrorIs(t, err, portal.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStore_ListFiltersByStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "orders")
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	started := created.Add(time.Minute)
	rows := pgxmock.NewRows(orderCols).AddRow(
		"ORD-2", portal.ServiceTranscriptCleanup, "notes.txt", "uploads/ORD-2/u2.txt", int64(100), "txt",
		"demo-client-1", "", portal.StatusTranscribing, "alice", "ext-1", "",
		created, &started, (*time.Time)(nil),
	)
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("transcribing", "").
		WillReturnRows(rows)

	got, err := store.List(context.Background(), portal.ListFilter{Status: portal.StatusTranscribing})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ORD-2", got[0].ID)
	require.Equal(t, "ext-1", got[0].TranscriptionHandle)
	require.NotNil(t, got[0].StartedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPool_RejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "orders; DROP TABLE orders")
	require.Error(t, err)
}
