// Package resolver picks the newest vendor package from the download server's
// directory listing, falling back to a last-known-good filename when the
// listing cannot be used.
package resolver
