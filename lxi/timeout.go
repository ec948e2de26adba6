package lxi

import (
	"errors"
	"time"
)

// timeoutGuard is a scoped override of one half's timeout. restore must run on every exit
// path, so callers defer it right after a successful override.
type timeoutGuard struct {
	dev  *Device
	h    *half
	prev time.Duration
}

// overrideTimeout applies d to h and returns the guard that undoes it.
func (d *Device) overrideTimeout(h *half, timeout time.Duration) (*timeoutGuard, error) {
	if timeout < 0 {
		return nil, d.opError(OpSetTimeout, ErrInvalidTimeout, nil)
	}

	prev := h.Timeout()
	if err := h.setTimeout(timeout); err != nil {
		h.timeout.Store(int64(prev))
		return nil, d.opError(OpSetTimeout, deadlineKind(err), err)
	}

	return &timeoutGuard{dev: d, h: h, prev: prev}, nil
}

// restore puts the previous timeout back. A restore failure becomes *errp when the operation
// succeeded, and is joined behind the operation's error otherwise.
func (g *timeoutGuard) restore(errp *error) {
	err := g.h.setTimeout(g.prev)
	if err == nil {
		return
	}

	restoreErr := g.dev.opError(OpRestoreTimeout, deadlineKind(err), err)
	if *errp == nil {
		*errp = restoreErr
		return
	}

	*errp = errors.Join(*errp, restoreErr)
}
