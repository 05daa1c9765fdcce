// Package normalize derives the storage keys used across the data layer.
package normalize

import (
	"strings"
	"unicode"
)

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// pathSafe maps every character that cannot appear in a store path segment
// to "-". Besides "." and "@" that covers the segment separator and the
// characters the hosted database refuses in keys.
func pathSafe(r rune) rune {
	switch r {
	case '.', '@', '/', '#', '$', '[', ']':
		return '-'
	}
	if unicode.IsControl(r) {
		return '-'
	}
	return r
}

// Identity returns the path-safe key for an email address. It is the join
// key between user records, conversation summaries and message records, and
// is always a single path segment.
//
// Two addresses that differ only in a substituted character map to the same
// identity; callers accept that collision.
func Identity(email string) string {
	return strings.Map(pathSafe, Email(email))
}

// ProfilePictureFileName is the object name of a user's profile picture.
func ProfilePictureFileName(identity string) string {
	return identity + "_profile_picture.png"
}

// ProfilePicturePath is the media store path of a user's profile picture.
func ProfilePicturePath(identity string) string {
	return "images/" + ProfilePictureFileName(identity)
}
