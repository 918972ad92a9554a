package datekey

import (
	"regexp"
	"strings"
)

// Extension is the daily-note file extension, including the dot.
const Extension = ".md"

var filenameRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})\.md$`)

// ToFilePath returns the vault-relative path of the daily note for k inside
// folder. The folder segment is omitted when folder normalises to "".
func ToFilePath(folder string, k Key) string {
	name := k.String() + Extension
	folder = NormalizeFolderPath(folder)
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// ParseFilename extracts the date from a bare daily-note file name such as
// "2024-01-31.md". It returns false for anything else, including paths.
func ParseFilename(name string) (Key, bool) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return Key{}, false
	}
	return fromMatch(m[1], m[2], m[3])
}

// ParsePath runs ParseFilename on the last segment of a vault path.
func ParsePath(p string) (Key, bool) {
	segs := Segments(p)
	if len(segs) == 0 {
		return Key{}, false
	}
	return ParseFilename(segs[len(segs)-1])
}

// NormalizeFolderPath splits raw on both slash kinds, drops empty segments
// and joins the rest with "/".
func NormalizeFolderPath(raw string) string {
	return strings.Join(Segments(raw), "/")
}

// Segments returns the non-empty path segments of raw.
func Segments(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// Dir returns the normalised folder part of a vault path.
func Dir(p string) string {
	segs := Segments(p)
	if len(segs) <= 1 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], "/")
}
