// Package marker persists the installed release version.
//
// The FileRepository keeps it as a one-line text file inside the install
// directory and replaces it atomically, so a crash mid-write leaves either
// the old or the new version behind.
package marker
