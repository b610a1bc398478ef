package packet

import "fmt"

// CollisionError reports that a packet destination already exists. Existing
// packets are never overwritten.
type CollisionError struct {
	Dir string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("packet: destination %s already exists", e.Dir)
}

// PersistenceError wraps an I/O failure while writing or reading a packet.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("packet: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IntegrityError reports a stored hash that no longer matches its artifact.
type IntegrityError struct {
	Dir      string
	Field    string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("packet: %s: %s mismatch (recorded %s, computed %s)", e.Dir, e.Field, e.Expected, e.Actual)
}
