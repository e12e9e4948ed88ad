package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so the orchestration layer can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: key does not exist in store
// - ErrExpired: persisted session or cache entry has expired
// - ErrUnavailable: store or collaborator temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
