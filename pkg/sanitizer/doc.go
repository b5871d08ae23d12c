// Package sanitizer normalizes user-supplied strings before they are used
// as storage keys, logged, or placed into outgoing messages.
package sanitizer
