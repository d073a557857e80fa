// Package handler implements the gateway's route handlers: search
// queries, token refresh and issue, and state CRUD. Handlers sit
// behind the middleware chain; authentication and admission decisions
// have already been made when they run.
package handler
