// Package common holds helpers shared by the provisioning services.
//
// It provides the immutable Session threaded through every step, the process
// Runner used for package managers and conversion tools, the HTTP client
// wrapper used for the download server, privilege escalation and the guard
// that looks for running application instances.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
