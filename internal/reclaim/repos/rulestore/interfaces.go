// Package rulestore persists the user's site rules.
//
// Rules are stored in the browser extension's record shape and resolved into
// domain.SiteRule (with its tagged Mode) once, when decoded.
package rulestore

import (
	"errors"

	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// ErrNotFound is returned when a rule ID is not in the store.
var ErrNotFound = errors.New("rule not found")

// StoreStats captures high-level counts and metadata for the persistent store.
type StoreStats struct {
	Rules       uint64
	Version     uint64 // incremented on every write
	UpdatedUnix int64  // seconds since epoch
}

// Store abstracts rule persistence.
// - List returns rules in creation order
// - Put inserts or replaces by ID, assigning ID and CreatedAt when empty
// - Get/Delete return ErrNotFound for unknown IDs
type Store interface {
	List() ([]domain.SiteRule, error)
	Get(id string) (domain.SiteRule, error)
	Put(rule domain.SiteRule) (domain.SiteRule, error)
	Delete(id string) error
	Stats() StoreStats
	Close() error
}
