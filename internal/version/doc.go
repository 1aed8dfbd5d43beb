// Package version exposes build metadata injected through ldflags.
//
// Short and Full render it for the `version` subcommand, UserAgent for the
// HTTP requests made against the vendor download server.
package version
