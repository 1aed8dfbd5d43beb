// Package toolchain installs the conversion utility a distribution family
// needs, on a best-effort basis. The installer re-checks tool presence on its
// own, so a failure here only degrades the install to manual extraction.
package toolchain
