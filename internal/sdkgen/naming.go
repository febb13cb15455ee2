package sdkgen

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// lowerCamel lowercases the leading capital run of an identifier. A run
// followed by a lowercase letter keeps its last capital, so "HTTPStatus"
// becomes "httpStatus" and "Users" becomes "users".
func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	end := 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		if !unicode.IsUpper(r) {
			break
		}
		end += size
	}
	if end == 0 {
		return s
	}
	if end < len(s) {
		last, size := utf8.DecodeLastRuneInString(s[:end])
		next, _ := utf8.DecodeRuneInString(s[end:])
		if end > size && unicode.IsLower(next) && unicode.IsUpper(last) {
			end -= size
		}
	}
	return lower.String(s[:end]) + s[end:]
}

// accessorName derives the client property of a controller.
func accessorName(controller, suffix string) string {
	name := lowerCamel(strings.TrimSuffix(controller, suffix))
	if name == "" {
		return "default"
	}
	return name
}

// baseClientMembers are taken by BaseClient and cannot be accessors.
var baseClientMembers = map[string]bool{
	"constructor": true, "baseUrl": true, "fetchFn": true, "defaultHeaders": true,
	"bearerToken": true, "setHeader": true, "removeHeader": true,
	"setBearerToken": true, "request": true,
}

// uniqueNamer hands out names, suffixing repeats with 2, 3, ...
type uniqueNamer struct {
	used     map[string]bool
	reserved map[string]bool
}

func newUniqueNamer(reserved map[string]bool) *uniqueNamer {
	return &uniqueNamer{used: make(map[string]bool), reserved: reserved}
}

func (n *uniqueNamer) name(base string) string {
	candidate := base
	for i := 2; n.used[candidate] || n.reserved[candidate]; i++ {
		candidate = base + strconv.Itoa(i)
	}
	n.used[candidate] = true
	return candidate
}
