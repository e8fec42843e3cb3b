// Package extid converts between internal int32 primary keys and the opaque
// URL-safe string form used everywhere outside the store. The encoding is the
// little-endian 4-byte serialization of the signed integer, base64-url
// encoded without padding. It carries no secret and is stable across
// processes.
package extid

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"pitunes/pkg/models"
)

// Encode returns the opaque form of an internal id.
func Encode(id int32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(id))
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Decode is the inverse of Encode. Malformed input or a payload that is not
// exactly four bytes yields models.ErrBadID.
func Decode(s string) (int32, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", models.ErrBadID, s, err)
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: %q: expected 4 bytes, got %d", models.ErrBadID, s, len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}
