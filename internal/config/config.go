// Package config loads optional per-project defaults for catalog start and
// validates the final server options.
//
// Defaults live in a YAML file (by default .catalogrc.yml in the project
// root). Command-line flags that were set explicitly always win over the
// file, and the file wins over built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/interactivethings/catalog-cli/internal/model"
)

// DefaultFile is the defaults file looked up when --config is not given.
const DefaultFile = ".catalogrc.yml"

// validate is shared; validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// File is the on-disk defaults file. Unset keys leave the corresponding
// option alone.
type File struct {
	Source *string `yaml:"source"`
	Port   *int    `yaml:"port"`
	HTTPS  *bool   `yaml:"https"`
	Host   *string `yaml:"host"`
	Proxy  *string `yaml:"proxy"`
}

// LoadFile reads path. A missing file yields an empty File unless required
// is set. Unknown keys are rejected so typos surface early.
func LoadFile(path string, required bool) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Overrides records which command-line values were given explicitly.
type Overrides struct {
	Source *string
	Port   *int
	HTTPS  *bool
	Host   *string
	Proxy  *string
}

// Resolve merges defaults, file and explicit flags into the source
// directory and server options, then validates the result.
func Resolve(f *File, o Overrides) (string, model.ServerOptions, error) {
	source := model.DefaultSourceDir
	opts := model.DefaultServerOptions()

	if f != nil {
		apply(&source, &opts, f.Source, f.Port, f.HTTPS, f.Host, f.Proxy)
	}
	apply(&source, &opts, o.Source, o.Port, o.HTTPS, o.Host, o.Proxy)

	if err := Validate(opts); err != nil {
		return "", model.ServerOptions{}, err
	}
	return source, opts, nil
}

func apply(source *string, opts *model.ServerOptions, src *string, port *int, https *bool, host, proxy *string) {
	if src != nil && *src != "" {
		*source = *src
	}
	if port != nil {
		opts.Port = *port
	}
	if https != nil {
		opts.HTTPS = *https
	}
	if host != nil {
		opts.Host = strings.TrimSpace(*host)
	}
	if proxy != nil {
		opts.Proxy = strings.TrimSpace(*proxy)
	}
}

// Validate checks the server options.
func Validate(opts model.ServerOptions) error {
	if err := validate.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, formatFieldError(fe))
		}
		return fmt.Errorf("invalid options:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Field() {
	case "Port":
		return fmt.Sprintf("port %v must be between 1 and 65535", fe.Value())
	case "Host":
		if fe.Tag() == "required" {
			return "host must not be empty"
		}
		return fmt.Sprintf("host %q is not a valid hostname or IP address", fe.Value())
	case "Proxy":
		return fmt.Sprintf("proxy %q must be an absolute http(s) URL", fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
