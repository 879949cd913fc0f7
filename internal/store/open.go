package store

// Open initializes a store backed by path.
//
// There is no on-disk format yet: Open never touches path and always
// returns an empty store. It exists so callers already go through the
// error-returning entry point that a loading implementation will need.
func Open(path string) (*MemStore, error) {
	s := NewMemStore()
	s.path = path
	return s, nil
}
