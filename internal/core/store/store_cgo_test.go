//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smsgate/smsgate/internal/config"
	"github.com/smsgate/smsgate/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.AuditConfig{Path: filepath.Join(t.TempDir(), "audit.db")}

	store, err := OpenAndMigrate(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	store, err := Open(context.Background(), config.AuditConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.CheckHealth(context.Background()))
	require.NoError(t, store.Close())
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestRecordAndListSends(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordSend(ctx, &core.SendRecord{
		RequestID:   "req-1",
		Recipient:   "+639171234567",
		Sender:      "ACME",
		BodyPreview: "hello",
		Status:      core.SendStatusCommitted,
		MessageID:   "SM1",
		CreatedAt:   base,
	}))
	require.NoError(t, store.RecordSend(ctx, &core.SendRecord{
		Recipient:   "+639171234568",
		Sender:      "ACME",
		BodyPreview: "again",
		Status:      core.SendStatusRolledBack,
		ErrorCode:   "PROVIDER_UNAVAILABLE",
		CreatedAt:   base.Add(time.Minute),
	}))

	records, err := store.ListSends(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	newest := records[0]
	require.Equal(t, "+639171234568", newest.Recipient)
	require.Equal(t, core.SendStatusRolledBack, newest.Status)
	require.Equal(t, "PROVIDER_UNAVAILABLE", newest.ErrorCode)
	require.Empty(t, newest.MessageID)
	require.NotEmpty(t, newest.ID)

	oldest := records[1]
	require.Equal(t, "req-1", oldest.RequestID)
	require.Equal(t, "SM1", oldest.MessageID)
	require.True(t, base.Equal(oldest.CreatedAt))

	limited, err := store.ListSends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	removed, err := store.PruneSends(ctx, base.Add(30*time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	remaining, err := store.ListSends(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
