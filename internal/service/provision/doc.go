// Package provision wires the individual steps into the full install
// pipeline. The updater reuses the same Pipeline and only decides whether
// to run it.
package provision
