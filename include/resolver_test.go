// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package include

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/lib/testutil"
)

// names renders a stream as "name arg..." lines for comparison.
func names(stream directive.Stream) []string {
	lines := make([]string, len(stream))
	for i, d := range stream {
		lines[i] = strings.TrimSpace(d.Name + " " + strings.Join(d.Args, " "))
	}
	return lines
}

func commandLine(lines ...string) directive.Stream {
	var stream directive.Stream
	for i, line := range lines {
		d, ok, err := directive.ParseLine(line, directive.Location{File: directive.CommandLineFile, Line: i + 1})
		if err != nil || !ok {
			panic("bad test directive: " + line)
		}
		stream = append(stream, d)
	}
	return stream
}

func TestFlattenTwoLevelInclude(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{
		"a": "ro-bind /a1\ninclude b\nro-bind /a2\n",
		"b": "ro-bind /b1\ninclude c\nro-bind /b2\n",
		"c": "ro-bind /c1\nro-bind /c2\n",
	})

	resolver := New(Options{SearchPaths: []string{directory}, Env: environ.FromMap(nil)})
	stream, err := resolver.Flatten(commandLine("setenv FIRST 1", "include a", "setenv LAST 1"), t.TempDir())
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	want := []string{
		"setenv FIRST 1",
		"ro-bind /a1",
		"ro-bind /b1",
		"ro-bind /c1",
		"ro-bind /c2",
		"ro-bind /b2",
		"ro-bind /a2",
		"setenv LAST 1",
	}
	if got := names(stream); !slices.Equal(got, want) {
		t.Errorf("flattened stream:\n got %q\nwant %q", got, want)
	}
	for _, d := range stream {
		if d.Kind() == directive.KindInclude {
			t.Errorf("flattened stream still contains %v", d)
		}
	}

	// Locations point at the module that declared each directive.
	if loc := stream[3].Location; filepath.Base(loc.File) != "c" || loc.Line != 1 {
		t.Errorf("location of /c1 = %v, want c:1", loc)
	}
}

func TestFlattenIsDeterministic(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{
		"base":  "ro-bind $HOME\ninclude extra\n",
		"extra": "setenv TERM\nro-bind-try /opt\n",
	})
	resolver := New(Options{SearchPaths: []string{directory}, Env: environ.FromMap(map[string]string{"HOME": "/home/u"})})

	first, err := resolver.FlattenFile("base", "")
	if err != nil {
		t.Fatalf("first Flatten failed: %v", err)
	}
	second, err := resolver.FlattenFile("base", "")
	if err != nil {
		t.Fatalf("second Flatten failed: %v", err)
	}
	if !slices.Equal(names(first), names(second)) {
		t.Errorf("flattening is not deterministic:\n%q\n%q", names(first), names(second))
	}
}

func TestFlattenRepeatedIncludeIsNotACycle(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{
		"top":    "include left\ninclude right\n",
		"left":   "include shared\n",
		"right":  "include shared\n",
		"shared": "ro-bind /shared\n",
	})

	resolver := New(Options{SearchPaths: []string{directory}, Env: environ.FromMap(nil)})
	stream, err := resolver.FlattenFile("top", "")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if want := []string{"ro-bind /shared", "ro-bind /shared"}; !slices.Equal(names(stream), want) {
		t.Errorf("stream = %q, want %q", names(stream), want)
	}
}

func TestFlattenDetectsCycle(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{
		"a": "ro-bind /a\ninclude b\n",
		"b": "include a\n",
	})

	resolver := New(Options{SearchPaths: []string{directory}, Env: environ.FromMap(nil)})
	_, err := resolver.FlattenFile("a", "")

	var cycleErr *CircularIncludeError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Flatten error = %v, want *CircularIncludeError", err)
	}
	if len(cycleErr.Cycle) != 3 {
		t.Fatalf("cycle = %q, want a -> b -> a", cycleErr.Cycle)
	}
	if filepath.Base(cycleErr.Cycle[0]) != "a" || filepath.Base(cycleErr.Cycle[1]) != "b" || filepath.Base(cycleErr.Cycle[2]) != "a" {
		t.Errorf("cycle = %q, want a -> b -> a", cycleErr.Cycle)
	}
	if filepath.Base(cycleErr.Location.File) != "b" || cycleErr.Location.Line != 1 {
		t.Errorf("cycle reported at %v, want b:1", cycleErr.Location)
	}
}

func TestFlattenDetectsSelfIncludeThroughSymlink(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{"real": "include alias\n"})
	if err := os.Symlink(filepath.Join(directory, "real"), filepath.Join(directory, "alias")); err != nil {
		t.Fatal(err)
	}

	resolver := New(Options{SearchPaths: []string{directory}, Env: environ.FromMap(nil)})
	_, err := resolver.FlattenFile("real", "")
	var cycleErr *CircularIncludeError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Flatten error = %v, want *CircularIncludeError", err)
	}
}

func TestFlattenNotFound(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	resolver := New(Options{
		SearchPaths: []string{first, second},
		Builtin:     fstest.MapFS{},
		Env:         environ.FromMap(nil),
	})

	_, err := resolver.Flatten(commandLine("include missing-module"), "/nonexistent-base")
	var notFound *IncludeNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Flatten error = %v, want *IncludeNotFoundError", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false")
	}
	want := []string{
		"/nonexistent-base/missing-module",
		filepath.Join(first, "missing-module"),
		filepath.Join(second, "missing-module"),
		"builtin:missing-module",
	}
	if !slices.Equal(notFound.Searched, want) {
		t.Errorf("searched = %q, want %q", notFound.Searched, want)
	}
	if notFound.Location.File != directive.CommandLineFile {
		t.Errorf("location = %v", notFound.Location)
	}
}

func TestFlattenSearchOrder(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	user := t.TempDir()
	system := t.TempDir()
	testutil.WriteTree(t, user, map[string]string{"mod": "setenv FROM user\n"})
	testutil.WriteTree(t, system, map[string]string{"mod": "setenv FROM system\n", "only-system": "setenv FROM system\n"})
	builtin := fstest.MapFS{
		"mod":          {Data: []byte("setenv FROM builtin\n")},
		"only-builtin": {Data: []byte("setenv FROM builtin\n")},
	}
	resolver := New(Options{SearchPaths: []string{user, system}, Builtin: builtin, Env: environ.FromMap(nil)})

	tests := []struct {
		ref  string
		want string
	}{
		{"mod", "user"},
		{"only-system", "system"},
		{"only-builtin", "builtin"},
	}
	for _, tt := range tests {
		stream, err := resolver.Flatten(commandLine("include "+tt.ref), base)
		if err != nil {
			t.Fatalf("Flatten(%s) failed: %v", tt.ref, err)
		}
		if len(stream) != 1 || stream[0].Args[1] != tt.want {
			t.Errorf("include %s resolved to %q, want FROM %s", tt.ref, names(stream), tt.want)
		}
	}

	// A file next to the including file beats the search path.
	testutil.WriteTree(t, base, map[string]string{"mod": "setenv FROM local\n"})
	stream, err := resolver.Flatten(commandLine("include mod"), base)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if stream[0].Args[1] != "local" {
		t.Errorf("include mod resolved to %q, want the local file", names(stream))
	}
}

func TestFlattenRelativeToIncludingFile(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{
		"apps/editor":       "include ../common/base\ninclude helper\n",
		"apps/helper":       "setenv HELPER 1\n",
		"common/base":       "ro-bind /usr\n",
		"elsewhere/ignored": "",
	})

	resolver := New(Options{Env: environ.FromMap(nil)})
	stream, err := resolver.FlattenFile(filepath.Join(directory, "apps", "editor"), "")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if want := []string{"ro-bind /usr", "setenv HELPER 1"}; !slices.Equal(names(stream), want) {
		t.Errorf("stream = %q, want %q", names(stream), want)
	}
}

func TestFlattenExpandsEnvironmentOnce(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{
		"home.inc": "ro-bind $HOME/.config ${HOME}/.config\nsetenv LITERAL $INDIRECT\n",
	})
	env := environ.FromMap(map[string]string{
		"HOME":     directory,
		"MODULE":   "home.inc",
		"INDIRECT": "$HOME",
	})

	resolver := New(Options{Env: env})
	stream, err := resolver.Flatten(commandLine("include $HOME/$MODULE", "ro-bind ~/x"), "")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	want := []string{
		"ro-bind " + directory + "/.config " + directory + "/.config",
		"setenv LITERAL $HOME",
		"ro-bind ~/x",
	}
	if got := names(stream); !slices.Equal(got, want) {
		t.Errorf("stream:\n got %q\nwant %q", got, want)
	}
}

func TestFlattenLiteralDollars(t *testing.T) {
	t.Parallel()

	env := environ.FromMap(map[string]string{"HOME": "/home/u"})
	resolver := New(Options{Env: env})
	stream, err := resolver.Flatten(commandLine(
		`ro-bind-text 'price: $5 \$HOME' /y`,
		`ro-bind-text "echo ${HOME" /x.sh`,
		`ro-bind-text "$HOME" ${HOME}/note`,
		`setenv PRICE '$5' `,
		`setenv COST \$HOME`,
		`setenv RAW $$HOME`,
		`setenv FIVE $5`,
	), "")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	want := [][]string{
		{"price: $5 \\$HOME", "/y"},
		{"echo ${HOME", "/x.sh"},
		{"$HOME", "/home/u/note"},
		{"PRICE", "$5"},
		{"COST", "$HOME"},
		{"RAW", "$HOME"},
		{"FIVE", "$5"},
	}
	if len(stream) != len(want) {
		t.Fatalf("stream has %d directives, want %d", len(stream), len(want))
	}
	for i, d := range stream {
		if !slices.Equal(d.Args, want[i]) {
			t.Errorf("%s args = %q, want %q", d.Location, d.Args, want[i])
		}
	}
}

func TestFlattenUnterminatedReference(t *testing.T) {
	t.Parallel()

	resolver := New(Options{Env: environ.FromMap(map[string]string{"HOME": "/home/u"})})
	_, err := resolver.Flatten(commandLine("ro-bind /usr", "bind ${HOME /home"), "")
	var argErr *directive.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("Flatten error = %v, want *directive.ArgumentError", err)
	}
	if argErr.Directive.Location.Line != 2 {
		t.Errorf("error at %v, want line 2", argErr.Directive.Location)
	}
	if !strings.Contains(err.Error(), "unterminated ${") {
		t.Errorf("error %q does not describe the unterminated reference", err)
	}
}

func TestFlattenTildeReference(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	testutil.WriteTree(t, home, map[string]string{"mods/tilde": "share-net\n"})
	resolver := New(Options{Env: environ.FromMap(map[string]string{"HOME": home})})

	stream, err := resolver.FlattenFile("~/mods/tilde", "")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(stream) != 1 || stream[0].Name != "share-net" {
		t.Errorf("stream = %q", names(stream))
	}
}

func TestFlattenBuiltinIncludesHonorOverrides(t *testing.T) {
	t.Parallel()

	override := t.TempDir()
	testutil.WriteTree(t, override, map[string]string{"child": "setenv FROM override\n"})
	builtin := fstest.MapFS{
		"parent": {Data: []byte("include child\n")},
		"child":  {Data: []byte("setenv FROM builtin\n")},
	}

	resolver := New(Options{SearchPaths: []string{override}, Builtin: builtin, Env: environ.FromMap(nil)})
	stream, err := resolver.FlattenFile("parent", "")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if want := []string{"setenv FROM override"}; !slices.Equal(names(stream), want) {
		t.Errorf("stream = %q, want %q", names(stream), want)
	}
}

func TestFlattenBuiltinCycle(t *testing.T) {
	t.Parallel()

	builtin := fstest.MapFS{
		"x": {Data: []byte("include y\n")},
		"y": {Data: []byte("include x\n")},
	}
	resolver := New(Options{Builtin: builtin, Env: environ.FromMap(nil)})
	_, err := resolver.FlattenFile("x", "")
	var cycleErr *CircularIncludeError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Flatten error = %v, want *CircularIncludeError", err)
	}
	if got := strings.Join(cycleErr.Cycle, " -> "); got != "builtin:x -> builtin:y -> builtin:x" {
		t.Errorf("cycle = %s", got)
	}
}

func TestFlattenIncludeArity(t *testing.T) {
	t.Parallel()

	resolver := New(Options{Env: environ.FromMap(nil)})
	_, err := resolver.Flatten(commandLine("include a b"), "")
	var argErr *directive.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("Flatten error = %v, want *directive.ArgumentError", err)
	}
}

func TestFlattenPropagatesParseErrors(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.WriteTree(t, directory, map[string]string{"bad": "ro-bind /ok\nsetenv X 'open\n"})

	resolver := New(Options{SearchPaths: []string{directory}, Env: environ.FromMap(nil)})
	_, err := resolver.FlattenFile("bad", "")
	var parseErr *directive.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Flatten error = %v, want *directive.ParseError", err)
	}
	if parseErr.Location.Line != 2 || !strings.HasSuffix(parseErr.Location.File, "bad") {
		t.Errorf("parse error at %v, want bad:2", parseErr.Location)
	}
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	env := environ.FromMap(map[string]string{"HOME": "/home/u"})
	got := SearchPaths(env, []string{"/cli"}, []string{"/conf"}, SystemIncludeDir)
	want := []string{"/cli", "/conf", "/home/u/.config/xiwrap/includes", "/etc/xiwrap/includes"}
	if !slices.Equal(got, want) {
		t.Errorf("SearchPaths = %q, want %q", got, want)
	}
}
