// Package cookieutil pulls individual cookies out of a raw Cookie header
// string copied from an authenticated browser session.
package cookieutil

import "strings"

// Extract returns the value of the named cookie inside a raw Cookie header
// value. The name comparison is case-sensitive. The second return is false
// when the header is empty or the name does not occur; absence is not an
// error, the caller decides whether it is fatal.
func Extract(cookieHeader, name string) (string, bool) {
	if cookieHeader == "" {
		return "", false
	}

	for _, segment := range strings.Split(cookieHeader, ";") {
		segment = strings.TrimSpace(segment)
		// the value may itself contain '=', only the first one separates
		// the name from the value
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		if key == name {
			return value, true
		}
	}

	return "", false
}
