// Package port implements port probing and allocation for the Catalog dev
// server.
//
// The Scanner asks the operating system directly whether a host:port pair
// can be bound (net.Listen followed by an immediate Close). The Allocator
// starts at the preferred port and walks upward through a bounded window,
// returning the first bindable port. If the whole window is busy it fails
// with model.ErrPortExhausted instead of searching forever.
//
// A port returned by the Allocator is only guaranteed free at the moment it
// was probed. Losing a race against another process between allocation and
// bind is reported separately by the dev server (model.ErrBindConflict).
package port
