// Package session persists wizard state between runs: durable upload
// handles, placeholder and column lists, and auth artifacts.
package session

// Storage is a string key-value store scoped to one operator session.
type Storage interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys lists all stored keys.
	Keys() ([]string, error)
	// Close releases underlying resources.
	Close() error
}
