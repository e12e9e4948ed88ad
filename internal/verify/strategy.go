package verify

import (
	"context"

	"authsync/internal/ports"
)

// StrategyKind tags which verification path a verifier was built with. The
// variant is fixed at construction; there is no runtime feature detection.
type StrategyKind int

const (
	// StrategyPrimary uses the standard verification collaborator.
	StrategyPrimary StrategyKind = iota
	// StrategyFallback uses the legacy verification path, kept for
	// environments where the primary collaborator is not deployed.
	StrategyFallback
)

func (k StrategyKind) String() string {
	if k == StrategyFallback {
		return "fallback"
	}
	return "primary"
}

// Strategy binds a kind to its verification service.
type Strategy struct {
	kind    StrategyKind
	service ports.VerificationService
}

func PrimaryStrategy(service ports.VerificationService) Strategy {
	return Strategy{kind: StrategyPrimary, service: service}
}

func FallbackStrategy(service ports.VerificationService) Strategy {
	return Strategy{kind: StrategyFallback, service: service}
}

func (s Strategy) Kind() StrategyKind {
	return s.kind
}

func (s Strategy) Verify(ctx context.Context) (ports.IdentityResult, error) {
	return s.service.VerifyIdentity(ctx)
}
