// Package migrations carries the schema for users, sessions, tenants,
// tenant members and audit events. The server applies it at startup through
// database.Pool.Migrate; integration fixtures apply it to fresh containers.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
