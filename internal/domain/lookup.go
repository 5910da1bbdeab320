package domain

import "errors"

var (
	// ErrNotFound is returned by a Lookup when nothing matches the key.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned by a Lookup when a name matches more than
	// one target.
	ErrAmbiguous = errors.New("ambiguous lookup key")

	// ErrInvalidKey is returned for malformed lookup keys.
	ErrInvalidKey = errors.New("invalid lookup key")

	// ErrNoValue is returned when a record is built from a raw record
	// that carries no value.
	ErrNoValue = errors.New("raw record has no value")

	// ErrInvalidRecord is returned when a collection is given a nil
	// record or a nil collection.
	ErrInvalidRecord = errors.New("invalid record")
)

// Lookup resolves descriptions of stations, variables, and timestamps into
// domain objects. Implementations return ErrNotFound on a miss.
type Lookup interface {
	Station(key Key) (Station, error)
	Variable(key Key) (Variable, error)
	Timestamp(key Key) (Timestamp, error)
}
