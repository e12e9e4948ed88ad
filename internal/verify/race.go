package verify

import (
	"context"
	"log/slog"
	"time"

	"authsync/internal/ports"
	domainerrors "authsync/pkg/domain-errors"
)

type raceOutcome struct {
	result ports.IdentityResult
	err    error
}

// race runs the verification call against a timeout. There is no true abort:
// a call that loses the race keeps running and its result is received and
// discarded, never applied. The discard is an explicit branch so a late
// arrival can never surface as an unhandled result.
func race(
	ctx context.Context,
	timeout time.Duration,
	call func(context.Context) (ports.IdentityResult, error),
	logger *slog.Logger,
) (ports.IdentityResult, error) {
	done := make(chan raceOutcome, 1)
	go func() {
		result, err := call(ctx)
		done <- raceOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return ports.IdentityResult{}, domainerrors.Wrap(out.err,
				domainerrors.CodeVerificationFailed, "verification collaborator failed")
		}
		return out.result, nil
	case <-timer.C:
		go discard(done, logger, "timeout")
		return ports.IdentityResult{}, domainerrors.New(
			domainerrors.CodeVerificationTimeout, "verification collaborator did not respond in time")
	case <-ctx.Done():
		go discard(done, logger, "canceled")
		return ports.IdentityResult{}, domainerrors.Wrap(ctx.Err(),
			domainerrors.CodeVerificationTimeout, "verification canceled before completion")
	}
}

// discard drains the late arrival of a lost race.
func discard(done <-chan raceOutcome, logger *slog.Logger, why string) {
	out := <-done
	logger.Debug("discarding late verification result",
		"reason", why,
		"late_error", out.err,
	)
}
