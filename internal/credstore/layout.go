package credstore

import "bytes"

const (
	// FieldSize is the fixed byte length of each credential slot.
	FieldSize = 32

	// RegionSize is the size of the reserved non-volatile region: the network
	// name slot followed by the secret slot.
	RegionSize = 2 * FieldSize

	nameOffset   = 0
	secretOffset = FieldSize
)

// Credentials is the single saved (network name, secret) pair.
// A zero-length Name means no credentials are present.
type Credentials struct {
	Name   string
	Secret string
}

// Empty reports whether the pair represents "no credentials".
func (c Credentials) Empty() bool {
	return c.Name == ""
}

// String never includes the secret.
func (c Credentials) String() string {
	if c.Empty() {
		return "<none>"
	}
	return c.Name
}

// Encode lays the pair out in a RegionSize buffer. Unused trailing bytes of
// each slot are zero. Fields longer than FieldSize or containing NUL bytes are
// rejected because they cannot round-trip through the layout.
func Encode(c Credentials) ([]byte, error) {
	if err := checkField("network name", c.Name); err != nil {
		return nil, err
	}
	if err := checkField("secret", c.Secret); err != nil {
		return nil, err
	}

	buf := make([]byte, RegionSize)
	copy(buf[nameOffset:nameOffset+FieldSize], c.Name)
	copy(buf[secretOffset:secretOffset+FieldSize], c.Secret)
	return buf, nil
}

// Decode reads a pair from a region image. Short images and images whose
// name slot starts with a zero byte decode to the empty pair.
func Decode(data []byte) Credentials {
	if len(data) < RegionSize {
		return Credentials{}
	}

	name := field(data[nameOffset : nameOffset+FieldSize])
	if name == "" {
		return Credentials{}
	}

	return Credentials{
		Name:   name,
		Secret: field(data[secretOffset : secretOffset+FieldSize]),
	}
}

// field returns the slot contents up to the first zero byte. A slot filled
// completely has no terminator.
func field(slot []byte) string {
	if i := bytes.IndexByte(slot, 0); i >= 0 {
		return string(slot[:i])
	}
	return string(slot)
}

func checkField(name, value string) error {
	if len(value) > FieldSize {
		return &FieldError{Field: name, Len: len(value)}
	}
	if bytes.IndexByte([]byte(value), 0) >= 0 {
		return &FieldError{Field: name, Len: len(value), NUL: true}
	}
	return nil
}
