// Package wmi runs WQL queries against WMI namespaces and normalizes the
// returned objects into JSON friendly records.
package wmi

import "errors"

// DefaultNamespace is used when a caller does not name one.
const DefaultNamespace = `ROOT\CIMV2`

var (
	// ErrNoMoreItems is returned by ObjectSet.Next once enumeration is exhausted.
	ErrNoMoreItems = errors.New("wmi: no more items")

	// ErrUnsupported is returned by NewLocator on platforms without WMI.
	ErrUnsupported = errors.New("wmi: not supported on this platform")

	// ErrNotInitialized is reported when a query runs on an executor
	// without a locator, such as one that has been closed.
	ErrNotInitialized = errors.New("WMI not initialized")
)

// Locator is the long lived connection to the management subsystem.
type Locator interface {
	// ConnectServer binds to a namespace. The returned Service must be
	// released by the caller.
	ConnectServer(namespace string) (Service, error)
	Close() error
}

// Service is a connection scoped to one namespace.
type Service interface {
	// Authorize sets call level authentication and impersonation on the
	// binding.
	Authorize() error
	// ExecQuery submits a WQL query for forward-only, semi-synchronous
	// enumeration.
	ExecQuery(query string) (ObjectSet, error)
	Release()
}

// ObjectSet enumerates query results.
type ObjectSet interface {
	// Next blocks until an object is available or the enumeration ends, in
	// which case it returns ErrNoMoreItems.
	Next() (Object, error)
	Release()
}

// Object is one query result instance.
type Object interface {
	// Properties lists every property, system properties included, with
	// values detached from the underlying handles.
	Properties() ([]NamedVariant, error)
	Release()
}

type NamedVariant struct {
	Name    string
	Variant Variant
}
