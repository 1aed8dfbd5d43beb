// Package patcher adapts a fresh install to the host: it exposes host
// libraries under the Debian-style multiarch names the application expects
// and replaces the bundled C++ runtime with the system one. Nothing here
// fails the run; problems end up in the returned Report.
package patcher
