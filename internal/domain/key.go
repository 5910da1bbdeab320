package domain

import (
	"fmt"
	"strconv"
)

// KeyKind tells how a [Key] identifies its target.
type KeyKind uint8

const (
	// KeyInvalid is the zero value; lookups reject it with ErrInvalidKey.
	KeyInvalid KeyKind = iota
	// KeyID addresses the target by its integer id.
	KeyID
	// KeyName addresses the target by a name or description.
	KeyName
)

// Key is a lookup key for a station, variable, or timestamp. Keys are
// comparable and may be used as map keys.
type Key struct {
	kind KeyKind
	id   int
	name string
}

// ByID returns a key addressing the target with the given id.
func ByID(id int) Key { return Key{kind: KeyID, id: id} }

// ByName returns a key addressing the target by name or description.
func ByName(name string) Key { return Key{kind: KeyName, name: name} }

// Kind returns how k identifies its target.
func (k Key) Kind() KeyKind { return k.kind }

// ID returns the id of a KeyID key.
func (k Key) ID() (int, bool) { return k.id, k.kind == KeyID }

// Name returns the name of a KeyName key.
func (k Key) Name() (string, bool) { return k.name, k.kind == KeyName }

// Validate returns ErrInvalidKey for the zero key and for empty names.
func (k Key) Validate() error {
	switch k.kind {
	case KeyID:
		return nil
	case KeyName:
		if k.name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidKey)
		}
		return nil
	default:
		return ErrInvalidKey
	}
}

func (k Key) String() string {
	switch k.kind {
	case KeyID:
		return "#" + strconv.Itoa(k.id)
	case KeyName:
		return strconv.Quote(k.name)
	default:
		return "<invalid key>"
	}
}
