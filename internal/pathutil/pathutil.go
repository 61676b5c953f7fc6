// Package pathutil provides the filesystem-name encoding used to map a
// project's working-directory path onto the coding assistant's on-disk
// session store layout.
package pathutil

import (
	"path/filepath"
	"strings"
)

// EncodeProjectPath converts a project path to the flat directory name the
// coding-assistant tool uses under its session store base directory: every
// "/" and "." is replaced with "-".
//
// Examples:
//
//	/home/u/workspace        → -home-u-workspace
//	/home/u.name/workspace   → -home-u-name-workspace
//
// This mapping is lossy but stable. It is never used to reconstruct a
// project path from a directory name — callers that need the canonical
// project path read it from the session index's originalPath field instead.
func EncodeProjectPath(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	encoded := strings.Map(func(r rune) rune {
		if r == '/' || r == '.' {
			return '-'
		}
		return r
	}, cleaned)
	return encoded
}
