package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	scheme  = "argon2id"
	saltLen = 16
	keyLen  = 32
)

var errMalformedHash = errors.New("malformed_password_hash")

// Params are the Argon2id cost settings stored alongside each hash.
type Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
}

// Current is what new hashes are created with. Stored hashes with other
// params still verify and are reported by NeedsRehash.
var Current = Params{Memory: 64 * 1024, Time: 1, Threads: 4}

type encodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

// Hash returns a PHC-formatted Argon2id hash with a random salt.
func Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, Current.Time, Current.Memory, Current.Threads, keyLen)
	return encodedHash{params: Current, salt: salt, key: key}.String(), nil
}

// Verify reports whether plain matches encoded. Malformed hashes never match.
func Verify(plain, encoded string) bool {
	h, err := parse(encoded)
	if err != nil {
		return false
	}
	p := h.params
	check := argon2.IDKey([]byte(plain), h.salt, p.Time, p.Memory, p.Threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, check) == 1
}

// NeedsRehash reports whether encoded was produced with params other than
// Current.
func NeedsRehash(encoded string) bool {
	h, err := parse(encoded)
	if err != nil {
		return true
	}
	return h.params != Current || len(h.key) != keyLen
}

func (h encodedHash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		scheme, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func parse(encoded string) (encodedHash, error) {
	var h encodedHash
	// "$argon2id$v=19$m=..,t=..,p=..$salt$key" splits into six parts with a
	// leading empty one.
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != scheme {
		return h, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Time, &h.params.Threads); err != nil {
		return h, errMalformedHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return h, errMalformedHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return h, errMalformedHash
	}
	return h, nil
}
