//go:build windows

package devserver

import (
	"errors"
	"syscall"
)

// wsaeAddrInUse is the Winsock error for an address that is already bound.
// Windows does not report it as syscall.EADDRINUSE, which is only a
// placeholder value there.
const wsaeAddrInUse syscall.Errno = 10048

// isAddrInUse reports whether a listen error means the address is already
// bound by someone else.
func isAddrInUse(err error) bool {
	return errors.Is(err, wsaeAddrInUse) || errors.Is(err, syscall.EADDRINUSE)
}
