package fileid

import "strings"

// NormalizePath canonicalizes a path the way the indexer's file
// identification must: backslashes become forward slashes, and a
// Windows drive-letter prefix ("C:\x" or "C:/x") becomes a POSIX-style
// "/c/x" so that the same path compares equal regardless of which
// front end produced it. Paths without a drive letter pass through
// unchanged apart from the separator swap.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	path = strings.ReplaceAll(path, "\\", "/")

	if len(path) >= 2 && path[1] == ':' && isDriveLetter(path[0]) {
		drive := toLowerByte(path[0])
		rest := path[2:]
		if !strings.HasPrefix(rest, "/") {
			rest = "/" + rest
		}
		path = "/" + string(drive) + rest
	}

	return path
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func toLowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
