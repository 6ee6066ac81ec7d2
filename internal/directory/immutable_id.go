package directory

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// ImmutableID returns the Base64 form of the raw 16-byte objectGUID, as
// used by directory synchronization engines to hard-link accounts.
func ImmutableID(objectGUID [16]byte) string {
	return base64.StdEncoding.EncodeToString(objectGUID[:])
}

// DecodeImmutableID returns the raw objectGUID bytes encoded in id.
func DecodeImmutableID(id string) ([16]byte, error) {
	var out [16]byte
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return out, fmt.Errorf("invalid immutable id %q: %w", id, err)
	}
	if len(raw) != 16 {
		return out, fmt.Errorf("invalid immutable id %q: decoded to %d bytes, want 16", id, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// GUIDToWire converts a GUID string in its canonical text form to the
// little-endian byte layout Active Directory stores in objectGUID.
func GUIDToWire(guid string) ([16]byte, error) {
	var out [16]byte
	u, err := uuid.Parse(guid)
	if err != nil {
		return out, fmt.Errorf("invalid GUID %q: %w", guid, err)
	}
	out[0], out[1], out[2], out[3] = u[3], u[2], u[1], u[0]
	out[4], out[5] = u[5], u[4]
	out[6], out[7] = u[7], u[6]
	copy(out[8:], u[8:])
	return out, nil
}

// WireToGUID is the inverse of GUIDToWire.
func WireToGUID(b [16]byte) string {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])
	return u.String()
}
