package manifest

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
)

var errEntryNotFound = errors.New("version literal not found")

// inlineVersionRegex finds the version key inside an inline table
var inlineVersionRegex = regexp.MustCompile(`[{,]\s*(?:version|"version"|'version')\s*=\s*`)

// rewritePin replaces the version string literal of name in table.
// It recognises the three shapes a dependency takes in a Cargo manifest:
//
//	name = "=1.2.3"
//	name = { version = "=1.2.3", features = ["x"] }
//	[table.name]
//	version = "=1.2.3"
func rewritePin(data []byte, table, name, version string) ([]byte, error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	var section []string

	for i, line := range lines {
		text := string(line)
		trimmed := strings.TrimSpace(text)

		if strings.HasPrefix(trimmed, "[") {
			if path, ok := parseHeader(trimmed); ok {
				section = path
			} else {
				section = nil
			}
			continue
		}

		keyPath, valueStart, ok := parseKeyValue(text)
		if !ok {
			continue
		}
		full := append(append([]string(nil), section...), keyPath...)

		var literalAt int
		switch {
		case pathEquals(full, table, name):
			rest := text[valueStart:]
			switch {
			case strings.HasPrefix(rest, `"`), strings.HasPrefix(rest, `'`):
				literalAt = valueStart
			case strings.HasPrefix(rest, "{"):
				loc := inlineVersionRegex.FindStringIndex(rest)
				if loc == nil {
					return nil, errEntryNotFound
				}
				literalAt = valueStart + loc[1]
			default:
				return nil, errEntryNotFound
			}
		case pathEquals(full, table, name, "version"):
			literalAt = valueStart
		default:
			continue
		}

		replaced, err := replaceLiteral(text, literalAt, version)
		if err != nil {
			return nil, err
		}

		out := make([]byte, 0, len(data)+len(version))
		for j, l := range lines {
			if j == i {
				out = append(out, replaced...)
			} else {
				out = append(out, l...)
			}
		}
		return out, nil
	}

	return nil, errEntryNotFound
}

// replaceLiteral swaps the version inside the string literal starting at
// pos, keeping any requirement operator in front of it.
func replaceLiteral(line string, pos int, version string) (string, error) {
	if pos >= len(line) {
		return "", errEntryNotFound
	}
	quote := line[pos]
	if quote != '"' && quote != '\'' {
		return "", errEntryNotFound
	}

	end := -1
	for j := pos + 1; j < len(line); j++ {
		if quote == '"' && line[j] == '\\' {
			j++
			continue
		}
		if line[j] == quote {
			end = j
			break
		}
	}
	if end < 0 {
		return "", errors.New("unterminated string")
	}

	op, _ := splitOperator(line[pos+1 : end])
	return line[:pos+1] + op + version + line[end:], nil
}

// parseHeader parses a [table] header into its key path.
// Array-of-tables headers are reported as not ok.
func parseHeader(trimmed string) ([]string, bool) {
	if strings.HasPrefix(trimmed, "[[") {
		return nil, false
	}
	end := strings.Index(trimmed, "]")
	if end < 0 {
		return nil, false
	}
	path, rest, ok := parseKeyPath(trimmed[1:end])
	if !ok || strings.TrimSpace(rest) != "" {
		return nil, false
	}
	return path, true
}

// parseKeyValue splits a "key = value" line, returning the key path and the
// offset at which the value starts
func parseKeyValue(line string) ([]string, int, bool) {
	trimmedLeft := strings.TrimLeft(line, " \t")
	if trimmedLeft == "" || strings.HasPrefix(trimmedLeft, "#") {
		return nil, 0, false
	}
	offset := len(line) - len(trimmedLeft)

	path, rest, ok := parseKeyPath(trimmedLeft)
	if !ok {
		return nil, 0, false
	}
	afterKey := strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(afterKey, "=") {
		return nil, 0, false
	}
	value := strings.TrimLeft(afterKey[1:], " \t")

	return path, offset + len(trimmedLeft) - len(value), true
}

// parseKeyPath reads a dotted key made of bare or quoted parts and returns
// the remaining text
func parseKeyPath(s string) ([]string, string, bool) {
	var path []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return nil, "", false
		}

		var part string
		switch s[0] {
		case '"', '\'':
			end := strings.IndexByte(s[1:], s[0])
			if end < 0 {
				return nil, "", false
			}
			part = s[1 : end+1]
			s = s[end+2:]
		default:
			n := 0
			for n < len(s) && isBareKeyChar(s[n]) {
				n++
			}
			if n == 0 {
				return nil, "", false
			}
			part = s[:n]
			s = s[n:]
		}
		path = append(path, part)

		rest := strings.TrimLeft(s, " \t")
		if !strings.HasPrefix(rest, ".") {
			return path, s, true
		}
		s = rest[1:]
	}
}

func isBareKeyChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func pathEquals(path []string, want ...string) bool {
	if len(path) != len(want) {
		return false
	}
	for i := range path {
		if path[i] != want[i] {
			return false
		}
	}
	return true
}
