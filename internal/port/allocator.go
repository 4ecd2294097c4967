package port

import (
	"context"
	"fmt"

	"github.com/interactivethings/catalog-cli/internal/model"
)

// DefaultMaxAttempts bounds how many consecutive ports are probed, starting
// at the preferred one.
//
// 100 ports is far more than a developer machine normally has occupied in a
// row, yet small enough that a fully blocked window fails within a few
// milliseconds instead of scanning the whole port space.
const DefaultMaxAttempts = 100

// Prober reports whether a port can be bound on a host.
//
// *Scanner is the production implementation and asks the operating system.
// Tests substitute a fake so the search policy can be exercised without
// opening real sockets.
type Prober interface {
	IsPortAvailable(host string, port int) bool
}

// Allocator picks the port the dev server will listen on.
//
// Search policy: the preferred port first, then preferred+1, preferred+2 and
// so on, for at most MaxAttempts candidates and never beyond 65535. The
// walk is strictly upward so the result is predictable: a user asking for
// 4000 while 4000 is taken gets 4001, not some random ephemeral port.
//
// The Allocator keeps no state between calls. A port it returns is only
// known to be free at the moment it was probed; the dev server reports a
// lost race at bind time as model.ErrBindConflict.
type Allocator struct {
	// prober answers the availability question for each candidate.
	// Injected via the constructor so tests can use a fake.
	prober Prober

	// MaxAttempts is the size of the search window. Values < 1 fall back
	// to DefaultMaxAttempts.
	MaxAttempts int
}

// NewAllocator creates an Allocator using the given prober and the default
// search window. The prober must not be nil.
func NewAllocator(prober Prober) *Allocator {
	return &Allocator{
		prober:      prober,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Allocate returns preferred when it is free on host, otherwise the next
// free port in the search window. Substitution is silent; callers learn
// about it by comparing the result with preferred.
//
// Algorithm:
//  1. Reject a preferred port outside 1-65535; no window can start there.
//  2. Compute the last candidate: preferred+MaxAttempts-1, clamped to 65535.
//  3. Probe each candidate in order, checking ctx before every probe so an
//     interrupt during a slow scan is honoured promptly.
//  4. Return the first available candidate.
//  5. If none is available, fail with model.ErrPortExhausted naming the
//     host and the window that was searched.
func (a *Allocator) Allocate(ctx context.Context, host string, preferred int) (int, error) {
	// Step 1: a preferred port of 0 would mean "any port" to net.Listen,
	// which is not what the user asked for, so it is an error here.
	if preferred < 1 || preferred > maxPort {
		return 0, fmt.Errorf("preferred port %d out of range (1-%d)", preferred, maxPort)
	}

	// Step 2: bound the window. A zero-valued Allocator (MaxAttempts unset)
	// still gets the default window rather than probing nothing.
	attempts := a.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	last := preferred + attempts - 1
	if last > maxPort {
		// Near the top of the port space the window is simply shorter;
		// it never wraps around to low ports.
		last = maxPort
	}

	// Steps 3 and 4: walk upward and stop at the first bindable port.
	for candidate := preferred; candidate <= last; candidate++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if a.prober.IsPortAvailable(host, candidate) {
			return candidate, nil
		}
	}

	// Step 5: every candidate was taken. The sentinel lets callers tell
	// exhaustion apart from a bind race with errors.Is.
	return 0, fmt.Errorf("%w on %q in range %d-%d", model.ErrPortExhausted, host, preferred, last)
}
