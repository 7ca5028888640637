/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 20
	MaxMessageLength  = 500
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]{1,20}$`)
	roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// ValidUsername reports whether name, once sanitized, is 1-20 characters of
// letters, digits, spaces, hyphens and underscores.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(Sanitize(name))
}

// ValidMessage reports whether text, once sanitized, is 1-500 characters long.
func ValidMessage(text string) bool {
	n := utf8.RuneCountInString(Sanitize(text))

	return n >= 1 && n <= MaxMessageLength
}

// ValidURL reports whether raw is an absolute http or https URL with a host.
func ValidURL(raw string) bool {
	_, err := CleanURL(raw)
	return err == nil
}

// queryEscaper percent-encodes the characters url.URL leaves raw in a query
// that could close an attribute or open a tag.
var queryEscaper = strings.NewReplacer(
	`"`, "%22",
	"'", "%27",
	"<", "%3C",
	">", "%3E",
	"`", "%60",
	" ", "%20",
)

// CleanURL parses raw as an absolute http or https URL and returns it
// re-serialized, with markup characters percent-encoded. Surrounding
// whitespace is ignored, and the slashes after the scheme may be missing
// ("http:x.com") as browsers allow.
func CleanURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}

	if u.Host == "" {
		rest := strings.TrimLeft(raw[len(u.Scheme)+1:], `/\`)

		u, err = url.Parse(u.Scheme + "://" + rest)
		if err != nil {
			return "", ErrInvalidURL
		}
	}

	if u.Hostname() == "" {
		return "", ErrInvalidURL
	}

	u.RawQuery = queryEscaper.Replace(u.RawQuery)

	// url.URL keeps quotes and angle brackets in host names.
	clean := u.String()
	if strings.ContainsAny(clean, "\"<>` ") {
		return "", ErrInvalidURL
	}

	return clean, nil
}

// ValidRoomCode reports whether code has the shape produced by NewCode.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}
