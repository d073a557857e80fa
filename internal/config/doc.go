// Package config provides configuration management for the search gateway.
//
// Configuration is loaded from a YAML file with ${VAR} and ${VAR:-default}
// environment substitution. When no file is given, a default configuration
// is built and flat SEARCH_* environment variables are applied on top, so
// the gateway can run fully env-configured in containers.
//
// The resulting Config is validated once at startup and treated as
// immutable afterward: it is shared by reference across all request
// handling goroutines and no runtime mutation path exists.
package config
