// Package catalog provides CRUD over the referential tables (albums,
// artists, genres, tracks). Names are deliberately not unique; identity is
// the randomly allocated id.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pitunes/internal/store"
	"pitunes/pkg/models"

	"github.com/sirupsen/logrus"
)

// Kind selects one of the three name-only referential tables.
type Kind string

const (
	KindAlbum  Kind = "albums"
	KindArtist Kind = "artists"
	KindGenre  Kind = "genres"
)

// Catalog runs each mutation in its own store transaction.
type Catalog struct {
	store  *store.Store
	logger *logrus.Logger
}

func New(s *store.Store) *Catalog {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Catalog{store: s, logger: logger}
}

// namedRow is the shared shape of albums, artists and genres.
type namedRow struct {
	ID        int32
	CreatedAt time.Time
	Name      string
}

func (c *Catalog) createNamed(ctx context.Context, kind Kind, name string) (namedRow, error) {
	var row namedRow
	err := c.store.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := store.AllocateID(tx, func(id int32) error {
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (id, name) VALUES (?, ?)`, kind), id, name)
			return err
		})
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT id, created_at, name FROM %s WHERE id = ?`, kind), id).
			Scan(&row.ID, &row.CreatedAt, &row.Name)
	})
	if err != nil {
		return namedRow{}, err
	}
	c.logger.WithFields(logrus.Fields{"kind": kind, "id": row.ID, "name": name}).Debug("Created catalog row")
	return row, nil
}

func (c *Catalog) updateNamed(ctx context.Context, kind Kind, id int32, name string) (namedRow, error) {
	var row namedRow
	err := c.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET name = ? WHERE id = ?`, kind), name, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s %d", models.ErrNotFound, kind, id)
		}
		return tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT id, created_at, name FROM %s WHERE id = ?`, kind), id).
			Scan(&row.ID, &row.CreatedAt, &row.Name)
	})
	return row, err
}

func (c *Catalog) deleteNamed(ctx context.Context, kind Kind, id int32) (bool, error) {
	var deleted bool
	err := c.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, kind), id)
		if store.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s %d is still referenced by tracks", models.ErrConflict, kind, id)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n == 1
		return nil
	})
	return deleted, err
}

func (c *Catalog) getNamed(ctx context.Context, kind Kind, id int32) (namedRow, error) {
	var row namedRow
	err := c.store.DB().QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, created_at, name FROM %s WHERE id = ?`, kind), id).
		Scan(&row.ID, &row.CreatedAt, &row.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return namedRow{}, fmt.Errorf("%w: %s %d", models.ErrNotFound, kind, id)
	}
	return row, err
}

func (c *Catalog) listNamed(ctx context.Context, kind Kind) ([]namedRow, error) {
	rows, err := c.store.DB().QueryContext(ctx,
		fmt.Sprintf(`SELECT id, created_at, name FROM %s ORDER BY name, id`, kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		var row namedRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Name); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (c *Catalog) namedByIDs(ctx context.Context, kind Kind, ids []int32) (map[int32]namedRow, error) {
	if len(ids) == 0 {
		return map[int32]namedRow{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := c.store.DB().QueryContext(ctx,
		fmt.Sprintf(`SELECT id, created_at, name FROM %s WHERE id IN (%s)`, kind, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int32]namedRow, len(ids))
	for rows.Next() {
		var row namedRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Name); err != nil {
			return nil, err
		}
		out[row.ID] = row
	}
	return out, rows.Err()
}

// GetOrCreateByName resolves a name to an id, inserting with a fresh id when
// absent. Read-first and exact-match; concurrent duplicate inserts of the
// same name are tolerated because names are not unique. Runs inside the
// caller's transaction (ingestion uses one per upload).
func GetOrCreateByName(tx *sql.Tx, kind Kind, name string) (int32, error) {
	var id int32
	err := tx.QueryRow(
		fmt.Sprintf(`SELECT id FROM %s WHERE name = ? ORDER BY id LIMIT 1`, kind), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return store.AllocateID(tx, func(id int32) error {
		_, err := tx.Exec(
			fmt.Sprintf(`INSERT INTO %s (id, name) VALUES (?, ?)`, kind), id, name)
		return err
	})
}
