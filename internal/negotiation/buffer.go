package negotiation

import (
	"errors"
	"fmt"

	"github.com/thomastoledo/prust/internal/signaling"
)

// CandidateApplier accepts remote candidates.
type CandidateApplier interface {
	AddICECandidate(c signaling.IceCandidate) error
}

// CandidateBuffer holds remote candidates that arrive before a remote
// description has been accepted. It is not safe for concurrent use.
type CandidateBuffer struct {
	pending []signaling.IceCandidate
}

// Push appends c. Duplicates are kept.
func (b *CandidateBuffer) Push(c signaling.IceCandidate) {
	b.pending = append(b.pending, c)
}

func (b *CandidateBuffer) Len() int {
	return len(b.pending)
}

// DrainInto applies every buffered candidate in arrival order and empties
// the buffer. A failing candidate does not stop the rest; all failures are
// returned together.
func (b *CandidateBuffer) DrainInto(to CandidateApplier) error {
	pending := b.pending
	b.pending = nil

	var errs []error
	for i, c := range pending {
		if err := to.AddICECandidate(c); err != nil {
			errs = append(errs, fmt.Errorf("candidate %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Reset discards every buffered candidate.
func (b *CandidateBuffer) Reset() {
	b.pending = nil
}
