// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directive

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineLength bounds a single directive line. ro-bind-text can carry a
// whole file inline, so this is generous.
const maxLineLength = 1 << 20

// Parse reads a directive file. file is used only for error locations.
func Parse(r io.Reader, file string) (Stream, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var stream Stream
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		d, ok, err := ParseLine(scanner.Text(), Location{File: file, Line: lineNumber})
		if err != nil {
			return nil, err
		}
		if ok {
			stream = append(stream, d)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return stream, nil
}

// ParseLine tokenizes one physical line. It returns ok=false for blank
// lines and comments. A leading "--" on the name is dropped so lines can be
// pasted from a command line.
func ParseLine(raw string, loc Location) (Directive, bool, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return Directive{}, false, nil
	}

	fields, err := splitFields(line)
	if err != nil {
		return Directive{}, false, &ParseError{Location: loc, Reason: err.Error()}
	}
	if len(fields) == 0 {
		return Directive{}, false, nil
	}

	name := strings.TrimPrefix(fields[0], "--")
	if name == "" {
		return Directive{}, false, &ParseError{Location: loc, Reason: "empty directive name"}
	}
	return Directive{Name: name, Args: fields[1:], Location: loc}, true, nil
}

// splitFields splits line on blanks. Single quotes are literal, double
// quotes honor \" and \\, and a backslash outside quotes escapes the next
// byte. Adjacent quoted and unquoted runs join into one field.
//
// Fields are expansion templates: a "$" that must stay literal (single
// quoted or backslash escaped) is written as "$$", which environment
// expansion collapses back to one "$".
func splitFields(line string) ([]string, error) {
	var fields []string
	var current strings.Builder
	inField := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case ' ', '\t':
			if inField {
				fields = append(fields, current.String())
				current.Reset()
				inField = false
			}
		case '\'':
			inField = true
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated single quote at column %d", i+1)
			}
			writeLiteral(&current, line[i+1:i+1+end])
			i += end + 1
		case '"':
			inField = true
			start := i
			closed := false
			for i++; i < len(line); i++ {
				c = line[i]
				if c == '"' {
					closed = true
					break
				}
				if c == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\') {
					i++
					c = line[i]
				}
				current.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated double quote at column %d", start+1)
			}
		case '\\':
			if i+1 >= len(line) {
				return nil, fmt.Errorf("trailing backslash")
			}
			i++
			writeLiteral(&current, line[i:i+1])
			inField = true
		default:
			current.WriteByte(c)
			inField = true
		}
	}
	if inField {
		fields = append(fields, current.String())
	}
	return fields, nil
}

func writeLiteral(b *strings.Builder, text string) {
	b.WriteString(strings.ReplaceAll(text, "$", "$$"))
}
