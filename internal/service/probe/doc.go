// Package probe reads the host identity: the os-release distribution fields
// and the machine architecture.
//
// Probing never fails. A missing or unreadable os-release file yields the
// "unknown" distribution, which routes the installer to manual extraction.
package probe
