// Package shellquote renders argument lists as POSIX shell command lines.
package shellquote

import "strings"

// Join escapes cmd and each arg and joins them with spaces.
func Join(cmd string, args ...string) string {
	if len(args) == 0 {
		return Escape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(Escape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(Escape(arg))
	}

	return builder.String()
}

// JoinArgv is Join for a full argv slice.
func JoinArgv(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return Join(argv[0], argv[1:]...)
}

// Escape single-quotes value unless it is made only of safe characters.
func Escape(value string) string {
	if value == "" {
		return "''"
	}
	if isSafe(value) {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func isSafe(value string) bool {
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_./:=@%+,", r):
		default:
			return false
		}
	}
	return true
}
