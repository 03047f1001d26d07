package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"ctfcast/internal/migrations"
	"ctfcast/internal/models"
	"ctfcast/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the durable store backing the delivery queue. Every
// pending notification has exactly one row until it is delivered or
// permanently dropped; LoadPendingNotifications is the sole source of
// truth at startup.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The store is owned by exactly one process; EXCLUSIVE locking
	// makes a second instance against the same file fail fast instead
	// of interleaving deliveries.
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA locking_mode = EXCLUSIVE; PRAGMA synchronous = NORMAL;"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set pragmas: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// AppendNotification durably records a new pending notification. The
// insert is idempotent on the notification ID: re-appending an already
// persisted notification is a no-op, so a crash between the disk write
// and the in-memory enqueue cannot produce duplicate rows.
func (d *Database) AppendNotification(ctx context.Context, n *models.Notification) error {
	payload, err := d.encryptor.EncryptIfEnabled(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO pending_notifications (id, payload, created_at, attempts, next_eligible_at)
		VALUES (?, ?, ?, ?, ?)
	`

	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, query,
			n.ID, payload, n.CreatedAt.UTC(), n.Attempts, n.NextEligibleAt.UTC())
		return err
	}, "append notification")
}

// UpdateNotificationAttempt durably overwrites the retry metadata for
// an existing notification so backoff state survives a restart.
func (d *Database) UpdateNotificationAttempt(ctx context.Context, id string, attempts int, nextEligibleAt time.Time) error {
	query := `
		UPDATE pending_notifications
		SET attempts = ?, next_eligible_at = ?
		WHERE id = ?
	`

	return retryableDBOperation(ctx, func() error {
		result, err := d.db.ExecContext(ctx, query, attempts, nextEligibleAt.UTC(), id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("no pending notification with ID: %s", id)
		}
		return nil
	}, "update notification attempt")
}

// RemoveNotification durably deletes the record for id. Removing an
// absent id is not an error; delivery confirmation may race a restart.
func (d *Database) RemoveNotification(ctx context.Context, id string) error {
	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, `DELETE FROM pending_notifications WHERE id = ?`, id)
		return err
	}, "remove notification")
}

// LoadPendingNotifications returns every pending notification in
// original insertion order. Called once at startup to repopulate the
// delivery queue.
func (d *Database) LoadPendingNotifications(ctx context.Context) ([]*models.Notification, error) {
	query := `
		SELECT id, payload, created_at, attempts, next_eligible_at
		FROM pending_notifications
		ORDER BY seq ASC
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var payload string
		if err := rows.Scan(&n.ID, &payload, &n.CreatedAt, &n.Attempts, &n.NextEligibleAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending notification: %w", err)
		}
		n.Payload, err = d.encryptor.DecryptIfEnabled(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt payload: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending notifications: %w", err)
	}

	return notifications, nil
}

// RecordOutcome appends the final disposition of a notification to the
// delivery log for operator visibility.
func (d *Database) RecordOutcome(ctx context.Context, id, outcome, detail string, attempts int) error {
	query := `
		INSERT INTO delivery_log (notification_id, outcome, detail, attempts)
		VALUES (?, ?, ?, ?)
	`

	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, query, id, outcome, nullStr(detail), attempts)
		return err
	}, "record outcome")
}

// CleanupOldRecords prunes delivery log entries older than the
// retention window. Pending notifications are never aged out.
func (d *Database) CleanupOldRecords(retentionDays int) error {
	query := `
		DELETE FROM delivery_log
		WHERE recorded_at < datetime('now', '-' || ? || ' days')
	`

	if _, err := d.db.Exec(query, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old records: %w", err)
	}
	return nil
}

func nullStr(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
