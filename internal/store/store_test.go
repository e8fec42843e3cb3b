package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsCreateSchema(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"albums", "artists", "genres", "tracks", "playlists", "playlists_tracks", "prngs"} {
		var n int
		err := s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		if n != 1 {
			t.Errorf("table %s missing after migrations", table)
		}
	}

	// Generator row seeded exactly once.
	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM prngs`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("prngs rows = %d, want 1", n)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	// Reopening must skip already-applied versions.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("applied migrations = %d, want 3", n)
	}
}

func TestWithTxCommitAndRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO albums (id, name) VALUES (1, 'kept')`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO albums (id, name) VALUES (2, 'discarded')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want the callback error unchanged", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("albums rows = %d, want 1 (rollback must discard the second insert)", n)
	}
}

func TestForeignKeysEnforcedOnEveryConnection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Hold two pooled connections at once so the second cannot reuse the
	// first; both must carry the DSN pragmas.
	conn1, err := s.DB().Conn(ctx)
	if err != nil {
		t.Fatalf("first Conn: %v", err)
	}
	defer conn1.Close()
	conn2, err := s.DB().Conn(ctx)
	if err != nil {
		t.Fatalf("second Conn: %v", err)
	}
	defer conn2.Close()

	for i, conn := range []*sql.Conn{conn1, conn2} {
		var on int
		if err := conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
			t.Fatalf("conn %d: reading pragma: %v", i+1, err)
		}
		if on != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i+1, on)
		}
	}

	if _, err := conn1.ExecContext(ctx, `INSERT INTO playlists (id, name) VALUES (1, 'mix')`); err != nil {
		t.Fatalf("inserting playlist: %v", err)
	}
	_, err = conn2.ExecContext(ctx,
		`INSERT INTO playlists_tracks (playlist_id, track_id, position) VALUES (1, 999, 0)`)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("dangling entry insert err = %v, want foreign key violation", err)
	}
}
