// Package store defines the document-store contract the application is
// written against: keyed documents with full and partial writes,
// append-only collections, and live subscriptions that deliver the full
// current document on every change.
package store

import "errors"

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("store: document not found")

// Document is a schemaless keyed document.
type Document map[string]any

// DocumentStore is the backend contract. The in-memory implementation
// in this package stands in for an external document database.
type DocumentStore interface {
	// Get returns the document at collection/key.
	Get(collection, key string) (Document, error)

	// Put writes the document at collection/key, replacing it entirely.
	Put(collection, key string, doc Document) error

	// Update merges fields into an existing document. Updating a
	// missing document is an error, matching Put/Update split of the
	// backing database.
	Update(collection, key string, fields Document) error

	// Append adds a document to an append-only collection.
	Append(collection string, doc Document) error

	// Recent returns the most recent n appended documents, newest first.
	Recent(collection string, n int) ([]Document, error)

	// Watch subscribes to changes of a single document. The returned
	// subscription delivers the full current document on every write,
	// starting with the current state if the document already exists.
	// Callers must Cancel the subscription when done.
	Watch(collection, key string) *Subscription
}

// Subscription is an explicit handle for a document watch. Cancel
// releases the underlying subscription; it is safe to call once.
type Subscription struct {
	// C delivers the full document after each change. It is closed by
	// Cancel.
	C <-chan Document

	cancel func()
}

// Cancel releases the subscription and closes C.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
