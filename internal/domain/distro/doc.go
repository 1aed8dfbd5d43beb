// Package distro classifies Linux distributions into the package-format
// families the installer knows how to serve.
//
// Family is a sealed interface: only the variants declared here implement it,
// and every dispatch site handles them with a type switch whose default arm
// is an error.
package distro
