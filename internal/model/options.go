package model

import (
	"net"
	"strconv"
)

const (
	// DefaultPort is the preferred port when none is given.
	DefaultPort = 4000

	// DefaultHost is the bind and display host when none is given.
	DefaultHost = "localhost"

	// DefaultSourceDir is the Catalog source directory when no positional
	// argument is given.
	DefaultSourceDir = "catalog"
)

// ServerOptions holds the options of a single start invocation.
// It is built once from the command line (and optional defaults file) and
// not modified afterwards.
type ServerOptions struct {
	// Port is the preferred TCP port. The allocator may substitute a
	// nearby free port.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// HTTPS serves over TLS with a self-signed certificate.
	HTTPS bool `yaml:"https"`

	// Host is used both for binding and for the serving URL.
	Host string `yaml:"host" validate:"required,hostname_rfc1123|ip"`

	// Proxy is an optional upstream URL for requests the dev server does
	// not answer itself.
	Proxy string `yaml:"proxy" validate:"omitempty,http_url"`
}

// DefaultServerOptions returns the options used when nothing is configured.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Port: DefaultPort,
		Host: DefaultHost,
	}
}

// ServingURL builds the URL the Catalog is served at:
// scheme://host:port/ . The same value is handed to the bundler config and
// to the browser launcher.
func ServingURL(https bool, host string, port int) string {
	scheme := "http"
	if https {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}
