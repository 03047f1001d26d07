package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ctfcast/internal/migrations"
	"ctfcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestMigrations(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	migrationsDir := filepath.Join(tmpDir, "migrations")
	require.NoError(t, os.MkdirAll(migrationsDir, 0755))

	schema, err := os.ReadFile(filepath.Join("..", "..", "scripts", "migrations", "001_initial_schema.sql"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(migrationsDir, "001_initial_schema.sql"), schema, 0644))

	return migrationsDir
}

func setupTestDatabase(t *testing.T) (*Database, string) {
	t.Helper()

	oldDir := migrations.MigrationsDir
	migrations.MigrationsDir = setupTestMigrations(t)
	t.Cleanup(func() { migrations.MigrationsDir = oldDir })

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, dbPath
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("../escape/outside.db")
	assert.Error(t, err)
}

func TestAppendAndLoadNotification(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	n := models.NewNotification("game:1:notice:42", `{"content":"First blood!"}`)
	require.NoError(t, db.AppendNotification(ctx, n))

	loaded, err := db.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.Equal(t, n.ID, loaded[0].ID)
	assert.Equal(t, n.Payload, loaded[0].Payload)
	assert.Equal(t, 0, loaded[0].Attempts)
	assert.WithinDuration(t, n.CreatedAt, loaded[0].CreatedAt, time.Second)
}

func TestAppendNotification_IdempotentOnID(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	n := models.NewNotification("game:1:notice:7", `{"content":"hint"}`)
	require.NoError(t, db.AppendNotification(ctx, n))

	// Re-appending after a crash between persist and enqueue must not
	// create a second row.
	dup := models.NewNotification("game:1:notice:7", `{"content":"hint"}`)
	require.NoError(t, db.AppendNotification(ctx, dup))

	loaded, err := db.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestLoadPendingNotifications_InsertionOrder(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	ids := []string{"game:1:notice:3", "game:1:notice:1", "game:1:notice:2"}
	for _, id := range ids {
		require.NoError(t, db.AppendNotification(ctx, models.NewNotification(id, "{}")))
	}

	loaded, err := db.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	for i, id := range ids {
		assert.Equal(t, id, loaded[i].ID)
	}
}

func TestUpdateNotificationAttempt(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	n := models.NewNotification("game:2:notice:1", "{}")
	require.NoError(t, db.AppendNotification(ctx, n))

	eligible := time.Now().UTC().Add(4 * time.Second).Truncate(time.Second)
	require.NoError(t, db.UpdateNotificationAttempt(ctx, n.ID, 2, eligible))

	loaded, err := db.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].Attempts)
	assert.WithinDuration(t, eligible, loaded[0].NextEligibleAt, time.Second)
}

func TestUpdateNotificationAttempt_UnknownID(t *testing.T) {
	db, _ := setupTestDatabase(t)

	err := db.UpdateNotificationAttempt(context.Background(), "missing", 1, time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no pending notification")
}

func TestRemoveNotification(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	n := models.NewNotification("game:1:notice:9", "{}")
	require.NoError(t, db.AppendNotification(ctx, n))
	require.NoError(t, db.RemoveNotification(ctx, n.ID))

	loaded, err := db.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Removing an already removed notification is not an error.
	assert.NoError(t, db.RemoveNotification(ctx, n.ID))
}

func TestPendingSurvivesReopen(t *testing.T) {
	db, dbPath := setupTestDatabase(t)
	ctx := context.Background()

	n := models.NewNotification("game:1:notice:5", `{"content":"challenge opened"}`)
	require.NoError(t, db.AppendNotification(ctx, n))
	require.NoError(t, db.UpdateNotificationAttempt(ctx, n.ID, 3, time.Now().UTC().Add(8*time.Second)))
	require.NoError(t, db.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, n.ID, loaded[0].ID)
	assert.Equal(t, 3, loaded[0].Attempts)
}

func TestAcknowledgedNotAnnouncedAgainAfterReopen(t *testing.T) {
	db, dbPath := setupTestDatabase(t)
	ctx := context.Background()

	delivered := models.NewNotification("game:1:notice:1", "{}")
	pending := models.NewNotification("game:1:notice:2", "{}")
	require.NoError(t, db.AppendNotification(ctx, delivered))
	require.NoError(t, db.AppendNotification(ctx, pending))

	require.NoError(t, db.RemoveNotification(ctx, delivered.ID))
	require.NoError(t, db.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, pending.ID, loaded[0].ID)
}

func TestRecordOutcome(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.RecordOutcome(ctx, "game:1:notice:1", models.OutcomeDelivered, "", 1))
	require.NoError(t, db.RecordOutcome(ctx, "game:1:notice:2", models.OutcomeDropped, "permanent failure: unknown channel", 1))

	var count int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM delivery_log`).Scan(&count))
	assert.Equal(t, 2, count)

	var detail string
	require.NoError(t, db.db.QueryRow(
		`SELECT detail FROM delivery_log WHERE notification_id = ?`, "game:1:notice:2").Scan(&detail))
	assert.Contains(t, detail, "permanent failure")
}

func TestCleanupOldRecords(t *testing.T) {
	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.RecordOutcome(ctx, "old", models.OutcomeDelivered, "", 1))
	_, err := db.db.Exec(`UPDATE delivery_log SET recorded_at = datetime('now', '-40 days') WHERE notification_id = 'old'`)
	require.NoError(t, err)

	require.NoError(t, db.RecordOutcome(ctx, "recent", models.OutcomeDelivered, "", 1))

	require.NoError(t, db.CleanupOldRecords(30))

	var count int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM delivery_log`).Scan(&count))
	assert.Equal(t, 1, count)

	var id string
	require.NoError(t, db.db.QueryRow(`SELECT notification_id FROM delivery_log`).Scan(&id))
	assert.Equal(t, "recent", id)
}

func TestEncryptionRoundTrip(t *testing.T) {
	t.Setenv("CTFCAST_ENABLE_ENCRYPTION", "true")
	t.Setenv("CTFCAST_ENCRYPTION_SECRET", "test-secret-key-with-enough-length-123")

	db, _ := setupTestDatabase(t)
	ctx := context.Background()

	n := models.NewNotification("game:1:notice:11", `{"content":"secret hint text"}`)
	require.NoError(t, db.AppendNotification(ctx, n))

	// Raw storage must not contain the plaintext.
	var stored string
	require.NoError(t, db.db.QueryRow(
		`SELECT payload FROM pending_notifications WHERE id = ?`, n.ID).Scan(&stored))
	assert.NotContains(t, stored, "secret hint text")

	loaded, err := db.LoadPendingNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, n.Payload, loaded[0].Payload)
}

func TestNewEncryptor_MissingSecret(t *testing.T) {
	t.Setenv("CTFCAST_ENABLE_ENCRYPTION", "true")
	t.Setenv("CTFCAST_ENCRYPTION_SECRET", "")

	_, err := NewEncryptor()
	assert.Error(t, err)
}

func TestNewEncryptor_ShortSecret(t *testing.T) {
	t.Setenv("CTFCAST_ENABLE_ENCRYPTION", "true")
	t.Setenv("CTFCAST_ENCRYPTION_SECRET", "too-short")

	_, err := NewEncryptor()
	assert.Error(t, err)
}
