// Package release models vendor package releases: the four-part dotted
// version, the filename pattern it is embedded in, and the descriptor that
// ties a filename to its version.
package release
