// Package gateway assembles the process: it builds every component
// from configuration, composes the middleware chain around the
// dispatcher, mounts it on a gin engine, and runs the HTTP(S) and
// metrics listeners until shutdown.
package gateway
