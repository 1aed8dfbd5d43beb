// Package installer puts the fetched package onto the host. Debian-family
// systems use apt directly, RPM and Arch systems convert the package first,
// and everything else, including any failed conversion, falls back to
// unpacking the payload by hand into the install directory.
package installer
