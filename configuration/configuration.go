// Package configuration defines the on-disk shape of a Drawbridge server's
// YAML configuration file, grounded on the teacher's own configuration
// package but trimmed to the four axes spec.md §6 names (store root
// directory, TLS material, OIDC issuer/audience, bind address) plus a
// logging level: a storage driver, notification endpoints, a pull-through
// proxy and the rest of the registry's pluggable surface have no
// equivalent here since the Entity Store is the only storage backend and
// spec.md names no other pluggable subsystem.
package configuration

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Configuration is a versioned Drawbridge server configuration, intended
// to be provided by a YAML file and optionally overridden by environment
// variables via Parser.
//
// Note that yaml field names should never include _ characters, since
// this is the separator used in environment variable names.
type Configuration struct {
	// Version is the version which defines the format of the rest of the
	// configuration.
	Version Version `yaml:"version"`

	// Log supports setting various parameters related to the logging
	// subsystem.
	Log Log `yaml:"log"`

	// Store configures the Entity Store.
	Store Store `yaml:"store"`

	// HTTP contains configuration parameters for the server's http
	// interface.
	HTTP HTTP `yaml:"http"`

	// OIDC configures the single trusted OIDC issuer bearer tokens are
	// verified against.
	OIDC OIDC `yaml:"oidc"`
}

// Store configures the Entity Store's root directory.
type Store struct {
	// RootDirectory is the filesystem path every entity is stored
	// beneath.
	RootDirectory string `yaml:"rootdirectory"`
}

// Log represents the configuration for logging within the application.
type Log struct {
	// Level is the granularity at which server operations are logged.
	Level Loglevel `yaml:"level,omitempty"`

	// Formatter overrides the default formatter with another. Options
	// include "text" and "json".
	Formatter string `yaml:"formatter,omitempty"`
}

// HTTP defines configuration options for the HTTP interface of the
// server.
type HTTP struct {
	// Addr specifies the bind address for the server instance.
	Addr string `yaml:"addr,omitempty"`

	// TLS instructs the http server to listen with a TLS configuration.
	TLS TLS `yaml:"tls,omitempty"`
}

// TLS defines the configuration options for enabling TLS for secure
// communication between the server and clients, including the optional
// client-CA pool used for the tree-read mTLS bypass (SPEC_FULL.md §11).
type TLS struct {
	// Certificate specifies the path to an x509 certificate file to be
	// used for TLS.
	Certificate string `yaml:"certificate,omitempty"`

	// Key specifies the path to the x509 key file, which should contain
	// the private portion for the file specified in Certificate.
	Key string `yaml:"key,omitempty"`

	// ClientCAs specifies the path to a PEM file of CA certificates used
	// to verify client certificates presented for the tree-read mTLS
	// bypass. Empty disables the bypass.
	ClientCAs string `yaml:"clientcas,omitempty"`
}

// OIDC configures the single trusted identity provider bearer tokens are
// verified against.
type OIDC struct {
	// ProviderName is the name this provider is recorded under in a
	// user's OIDC subject index entry (SPEC_FULL.md §3 invariant 4).
	ProviderName string `yaml:"providername"`

	// IssuerURL is the OIDC issuer's well-known discovery base URL.
	IssuerURL string `yaml:"issuerurl"`

	// Audience is the expected "aud" claim on presented bearer tokens.
	Audience string `yaml:"audience"`
}

// v0_1Configuration is a Version 0.1 Configuration struct. This is
// currently aliased to Configuration, as it is the current version.
type v0_1Configuration Configuration

// Version is a major/minor version pair of the form Major.Minor. Major
// version upgrades indicate structure or type changes; minor version
// upgrades should be strictly additive.
//
// UnmarshalYAML implements the yaml.Unmarshaler interface, validating
// that the version string parses as Major.Minor.
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var versionString string
	if err := unmarshal(&versionString); err != nil {
		return err
	}

	newVersion := Version(versionString)
	if _, err := newVersion.major(); err != nil {
		return err
	}
	if _, err := newVersion.minor(); err != nil {
		return err
	}

	*version = newVersion
	return nil
}

// CurrentVersion is the most recent Version that can be parsed.
var CurrentVersion = MajorMinorVersion(0, 1)

// Loglevel is the level at which operations are logged. This can be
// error, warn, info, or debug.
type Loglevel string

// UnmarshalYAML implements the yaml.Unmarshaler interface, lowercasing
// the string and validating that it represents a valid loglevel.
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var loglevelString string
	if err := unmarshal(&loglevelString); err != nil {
		return err
	}

	loglevelString = strings.ToLower(loglevelString)
	switch loglevelString {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s: must be one of [error, warn, info, debug]", loglevelString)
	}

	*loglevel = Loglevel(loglevelString)
	return nil
}

// Parse parses an input configuration yaml document into a Configuration
// struct.
//
// Environment variables may be used to override configuration parameters
// other than version, following the scheme below: Configuration.Abc may
// be replaced by the value of DRAWBRIDGE_ABC, Configuration.Abc.Xyz may
// be replaced by the value of DRAWBRIDGE_ABC_XYZ, and so forth.
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("drawbridge", []VersionedParseInfo{
		{
			Version: MajorMinorVersion(0, 1),
			ParseAs: reflect.TypeOf(v0_1Configuration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				v0_1, ok := c.(*v0_1Configuration)
				if !ok {
					return nil, fmt.Errorf("expected *v0_1Configuration, received %#v", c)
				}
				if v0_1.Log.Level == Loglevel("") {
					v0_1.Log.Level = Loglevel("info")
				}
				if v0_1.Store.RootDirectory == "" {
					return nil, errors.New("no store.rootdirectory configuration provided")
				}
				return (*Configuration)(v0_1), nil
			},
		},
	})

	config := new(Configuration)
	if err := p.Parse(in, config); err != nil {
		return nil, err
	}

	return config, nil
}
