package naming

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var partSuffixPattern = regexp.MustCompile(`_Part\d+of\d+$`)

// StripPartSuffix removes a trailing "_Part{n}of{N}" marker from a display
// name, preserving any file extension. Names without the marker are returned
// unchanged.
func StripPartSuffix(name string) string {
	stem, ext := splitExt(name)
	return partSuffixPattern.ReplaceAllString(stem, "") + ext
}

// PartName derives the display name persisted for one page of a group:
// the page's own base name (any prior part marker stripped) plus the new
// "_Part{n}of{N}" suffix, extension preserved.
func PartName(name string, n, total int) string {
	stem, ext := splitExt(name)
	stem = partSuffixPattern.ReplaceAllString(stem, "")
	return fmt.Sprintf("%s_Part%dof%d%s", stem, n, total, ext)
}

func splitExt(name string) (string, string) {
	ext := path.Ext(name)
	if ext == "" || strings.Contains(ext, " ") {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}
