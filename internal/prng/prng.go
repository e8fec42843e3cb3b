// Package prng issues catalog ids from a 32-bit PCG generator whose state
// lives in the singleton prngs row. Reading and writing the row inside the
// same transaction that uses the id serializes concurrent allocations: the
// row doubles as a mutex for id issuance.
package prng

import (
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// PCG32 constants shared with every prior writer of the prngs row; changing
// them invalidates persisted state.
const (
	multiplier = 6364136223846793005
	defaultInc = 1442695040888963407
)

// rand32 mirrors the persisted (state, inc) pair.
type rand32 struct {
	state uint64
	inc   uint64
}

func (r *rand32) next() uint32 {
	old := r.state
	r.state = old*multiplier + r.inc
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return bits.RotateLeft32(xorshifted, -int(rot))
}

func newRand32(seed uint64) rand32 {
	r := rand32{state: 0, inc: defaultInc<<1 | 1}
	r.next()
	r.state += seed
	r.next()
	return r
}

// Seed inserts the singleton row if it does not exist yet, seeding from OS
// randomness. Called once at startup, after migrations.
func Seed(db *sql.DB) error {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM prngs WHERE id = 1)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking prng row: %w", err)
	}
	if exists {
		return nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Errorf("seeding prng: %w", err)
	}
	r := newRand32(binary.LittleEndian.Uint64(buf[:]))
	_, err = db.Exec(`INSERT INTO prngs (id, state, inc) VALUES (1, ?, ?)`,
		int64(r.state), int64(r.inc))
	if err != nil {
		return fmt.Errorf("inserting prng row: %w", err)
	}
	return nil
}

// NextID advances the persisted generator and returns a fresh strictly
// positive id. Must run inside the transaction that consumes the id so a
// rollback also rolls the generator back. Zero and negative draws are
// resampled; clients reserve those values as sentinels.
func NextID(tx *sql.Tx) (int32, error) {
	var state, inc int64
	err := tx.QueryRow(`SELECT state, inc FROM prngs WHERE id = 1`).Scan(&state, &inc)
	if err != nil {
		return 0, fmt.Errorf("reading prng state: %w", err)
	}
	r := rand32{state: uint64(state), inc: uint64(inc)}
	var id int32
	for {
		id = int32(r.next())
		if id > 0 {
			break
		}
	}
	_, err = tx.Exec(`UPDATE prngs SET state = ?, inc = ? WHERE id = 1`,
		int64(r.state), int64(r.inc))
	if err != nil {
		return 0, fmt.Errorf("writing prng state: %w", err)
	}
	return id, nil
}
