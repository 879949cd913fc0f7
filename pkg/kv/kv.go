package kv

// Store defines the interface for a key-value store.
// Implementations of this interface can be swapped out,
// allowing for different storage backends (e.g., in-memory, journaled).
type Store interface {
	// Get retrieves the value associated with the given key.
	// A missing key is reported with found == false and a nil error;
	// err is reserved for failures of the backend itself.
	Get(key string) (value string, found bool, err error)

	// Set stores a key-value pair, overwriting any previous value.
	// Returns an error if the operation fails.
	Set(key, value string) error

	// Remove deletes a key from the store. Removing a missing key is a no-op.
	// Returns an error if the operation fails.
	Remove(key string) error
}
