// Package store groups the order persistence backends. The memory
// implementation backs tests and local development; the postgres
// implementation is the production OrderStore.
package store
