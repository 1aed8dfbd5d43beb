// Package fetcher owns the scratch workspace: it wipes it at the start of
// every fetch and downloads the selected package into it under a fixed name.
package fetcher
