package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailyreports/importer/internal/core"
	"github.com/dailyreports/importer/internal/testutil"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) pgtype.Date {
	t.Helper()
	d := core.ParseDate(s)
	require.True(t, d.Valid, "fixture date %q", s)
	return d
}

func insert(t *testing.T, store core.Store, r core.Report) int64 {
	t.Helper()
	var id int64
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx core.ReportWriter) error {
		var err error
		id, err = tx.InsertReport(ctx, r)
		return err
	})
	require.NoError(t, err)
	return id
}

func TestStore_InsertAndList_RoundTripsAllFields(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	in := core.Report{
		ReportDate:      date(t, "2024-01-05"),
		Employee:        "山田",
		StartAt:         core.TimeOfDay(8, 30, 0),
		EndAt:           core.TimeOfDay(17, 15, 30),
		OvertimeMinutes: pgtype.Int4{Int32: 30, Valid: true},
		MidnightMinutes: pgtype.Int4{Int32: 0, Valid: true},
		InTime:          core.TimeOfDay(9, 0, 0),
		OutTime:         core.TimeOfDay(12, 0, 0),
		ElapsedMinutes:  pgtype.Int4{Int32: 90, Valid: true},
		Destination:     core.ToPgText("本社"),
		WorkContent:     core.ToPgText("点検"),
		Companion:       core.ToPgText("佐藤"),
	}
	id := insert(t, store, in)
	assert.Equal(t, int64(1), id)

	got, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "2024-01-05", *core.FormatDate(r.ReportDate))
	assert.Equal(t, "山田", r.Employee)
	assert.Equal(t, in.StartAt, r.StartAt)
	assert.Equal(t, in.EndAt, r.EndAt)
	assert.Equal(t, in.OvertimeMinutes, r.OvertimeMinutes)
	assert.Equal(t, in.MidnightMinutes, r.MidnightMinutes)
	assert.Equal(t, in.InTime, r.InTime)
	assert.Equal(t, in.OutTime, r.OutTime)
	assert.Equal(t, in.ElapsedMinutes, r.ElapsedMinutes)
	assert.Equal(t, in.Destination, r.Destination)
	assert.Equal(t, in.WorkContent, r.WorkContent)
	assert.Equal(t, in.Companion, r.Companion)
	assert.WithinDuration(t, time.Now(), r.CreatedAt, time.Minute)
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
}

func TestStore_InsertAndList_AbsentFieldsStayNull(t *testing.T) {
	store := testutil.NewTestStore(t)

	insert(t, store, core.Report{ReportDate: date(t, "2024-01-05"), Employee: "山田"})

	got, err := store.ListReports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.False(t, r.StartAt.Valid)
	assert.False(t, r.EndAt.Valid)
	assert.False(t, r.OvertimeMinutes.Valid)
	assert.False(t, r.MidnightMinutes.Valid)
	assert.False(t, r.InTime.Valid)
	assert.False(t, r.OutTime.Valid)
	assert.False(t, r.ElapsedMinutes.Valid)
	assert.False(t, r.Destination.Valid)
	assert.False(t, r.WorkContent.Valid)
	assert.False(t, r.Companion.Valid)
}

func TestStore_ListReports_NewestDateFirstAndLimited(t *testing.T) {
	store := testutil.NewTestStore(t)

	for _, d := range []string{"2024-01-02", "2024-03-01", "2024-02-10"} {
		insert(t, store, core.Report{ReportDate: date(t, d), Employee: "山田"})
	}

	got, err := store.ListReports(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-01", *core.FormatDate(got[0].ReportDate))
	assert.Equal(t, "2024-02-10", *core.FormatDate(got[1].ReportDate))
}

func TestStore_Truncate_RestartsIdentity(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		insert(t, store, core.Report{ReportDate: date(t, "2024-01-05"), Employee: "山田"})
	}

	require.NoError(t, store.Truncate(ctx))

	got, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	id := insert(t, store, core.Report{ReportDate: date(t, "2024-01-06"), Employee: "佐藤"})
	assert.Equal(t, int64(1), id)
}

func TestStore_Truncate_EmptyTable(t *testing.T) {
	store := testutil.NewTestStore(t)
	require.NoError(t, store.Truncate(context.Background()))
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx core.ReportWriter) error {
		if _, err := tx.InsertReport(ctx, core.Report{ReportDate: date(t, "2024-01-05"), Employee: "山田"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_WithinTx_RollsBackOnPanic(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, tx core.ReportWriter) error {
			if _, err := tx.InsertReport(ctx, core.Report{ReportDate: date(t, "2024-01-05"), Employee: "山田"}); err != nil {
				return err
			}
			panic("mid-transaction")
		})
	})

	got, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_EnsureSchema_Idempotent(t *testing.T) {
	store := testutil.NewFileStore(t)
	ctx := context.Background()

	insert(t, store, core.Report{ReportDate: date(t, "2024-01-05"), Employee: "山田"})
	require.NoError(t, store.EnsureSchema(ctx))

	got, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_Ping(t *testing.T) {
	store := testutil.NewTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
