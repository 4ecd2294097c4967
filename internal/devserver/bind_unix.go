//go:build !windows

package devserver

import (
	"errors"
	"syscall"
)

// isAddrInUse reports whether a listen error means the address is already
// bound by someone else.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
