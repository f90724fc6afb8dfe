// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package include

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/xiwrap/directive"
	"github.com/bureau-foundation/xiwrap/environ"
)

// SystemIncludeDir is the administrator-managed module directory.
const SystemIncludeDir = "/etc/xiwrap/includes"

// builtinPrefix marks canonical names of modules from the builtin library.
const builtinPrefix = "builtin:"

// Options configures a Resolver.
type Options struct {
	// SearchPaths are module directories in priority order.
	SearchPaths []string

	// Builtin is searched after SearchPaths. Nil disables it.
	Builtin fs.FS

	// Env expands directive arguments and "~/" in references.
	Env environ.Env

	// Logger receives debug output for every resolution step. Nil
	// means slog.Default().
	Logger *slog.Logger
}

// Resolver flattens include graphs. It holds no per-call state and can be
// reused.
type Resolver struct {
	searchPaths []string
	builtin     fs.FS
	env         environ.Env
	logger      *slog.Logger
}

// New creates a Resolver.
func New(options Options) *Resolver {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		searchPaths: append([]string(nil), options.SearchPaths...),
		builtin:     options.Builtin,
		env:         options.Env,
		logger:      logger,
	}
}

// SearchPaths builds the module search path: user directories from the
// command line, directories from the config file, the user's config
// directory, then systemDir.
func SearchPaths(env environ.Env, commandLine, configured []string, systemDir string) []string {
	var paths []string
	paths = append(paths, commandLine...)
	paths = append(paths, configured...)
	if configHome := env.Get("XDG_CONFIG_HOME"); configHome != "" {
		paths = append(paths, filepath.Join(configHome, "xiwrap", "includes"))
	}
	if systemDir != "" {
		paths = append(paths, systemDir)
	}
	return paths
}

// context tracks the modules currently being expanded.
type context struct {
	stack []string
}

func (c *context) enter(canonical string, at directive.Location) error {
	for i, active := range c.stack {
		if active == canonical {
			cycle := append(append([]string{}, c.stack[i:]...), canonical)
			return &CircularIncludeError{Cycle: cycle, Location: at}
		}
	}
	c.stack = append(c.stack, canonical)
	return nil
}

func (c *context) leave() {
	c.stack = c.stack[:len(c.stack)-1]
}

// module is a located include target.
type module struct {
	canonical string
	display   string
	dir       string
	open      func() (io.ReadCloser, error)
}

// Flatten expands root, whose relative references resolve against
// baseDir. The result contains no include directives and every argument
// is environment-expanded, except the literal TEXT of ro-bind-text.
func (r *Resolver) Flatten(root directive.Stream, baseDir string) (directive.Stream, error) {
	ctx := &context{}
	var out directive.Stream
	if err := r.expand(root, baseDir, ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FlattenFile flattens the single module ref as if it were given with
// --include.
func (r *Resolver) FlattenFile(ref, baseDir string) (directive.Stream, error) {
	root := directive.Stream{{
		Name:     "include",
		Args:     []string{ref},
		Location: directive.Location{File: directive.CommandLineFile, Line: 1},
	}}
	return r.Flatten(root, baseDir)
}

func (r *Resolver) expand(stream directive.Stream, baseDir string, ctx *context, out *directive.Stream) error {
	for _, d := range stream {
		d, err := r.expandArgs(d)
		if err != nil {
			return err
		}
		if d.Kind() != directive.KindInclude {
			*out = append(*out, d)
			continue
		}
		if err := directive.CheckArity(d, 1, 1); err != nil {
			return err
		}

		target, err := r.locate(d.Args[0], baseDir, d.Location)
		if err != nil {
			return err
		}
		if err := ctx.enter(target.canonical, d.Location); err != nil {
			return err
		}
		r.logger.Debug("including module",
			"ref", d.Args[0],
			"path", target.display,
			"from", d.Location.String(),
			"depth", len(ctx.stack),
		)

		nested, err := r.parse(target)
		if err != nil {
			return err
		}
		if err := r.expand(nested, target.dir, ctx, out); err != nil {
			return err
		}
		ctx.leave()
	}
	return nil
}

func (r *Resolver) parse(target module) (directive.Stream, error) {
	reader, err := target.open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target.display, err)
	}
	defer reader.Close()
	return directive.Parse(reader, target.display)
}

// locate finds the module named by ref.
func (r *Resolver) locate(ref, baseDir string, at directive.Location) (module, error) {
	if ref == "" {
		return module{}, &directive.ArgumentError{
			Directive: directive.Directive{Name: "include", Args: []string{ref}, Location: at},
			Reason:    "empty module reference",
		}
	}
	if rest, ok := strings.CutPrefix(ref, "~/"); ok {
		ref = filepath.Join(r.env.Get("HOME"), rest)
	}

	var searched []string
	if filepath.IsAbs(ref) {
		searched = append(searched, ref)
		if target, ok := r.onDisk(ref); ok {
			return target, nil
		}
		return module{}, &IncludeNotFoundError{Ref: ref, Location: at, Searched: searched}
	}

	if baseDir != "" {
		candidate := filepath.Join(baseDir, ref)
		searched = append(searched, candidate)
		if target, ok := r.onDisk(candidate); ok {
			return target, nil
		}
	}

	for _, directory := range r.searchPaths {
		candidate := filepath.Join(directory, ref)
		searched = append(searched, candidate)
		if target, ok := r.onDisk(candidate); ok {
			return target, nil
		}
	}

	if r.builtin != nil {
		name := path.Clean(filepath.ToSlash(ref))
		searched = append(searched, builtinPrefix+name)
		if target, ok := r.inBuiltin(name); ok {
			return target, nil
		}
	}

	r.logger.Debug("include not found", "ref", ref, "searched", searched)
	return module{}, &IncludeNotFoundError{Ref: ref, Location: at, Searched: searched}
}

// onDisk returns the module at candidate if it is a regular file (or a
// symlink to one).
func (r *Resolver) onDisk(candidate string) (module, bool) {
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return module{}, false
	}
	canonical, err := filepath.Abs(candidate)
	if err != nil {
		return module{}, false
	}
	if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
		canonical = resolved
	}
	return module{
		canonical: canonical,
		display:   candidate,
		dir:       filepath.Dir(canonical),
		open: func() (io.ReadCloser, error) {
			return os.Open(canonical)
		},
	}, true
}

func (r *Resolver) inBuiltin(name string) (module, bool) {
	if !fs.ValidPath(name) {
		return module{}, false
	}
	info, err := fs.Stat(r.builtin, name)
	if err != nil || info.IsDir() {
		return module{}, false
	}
	return module{
		canonical: builtinPrefix + name,
		display:   builtinPrefix + name,
		// Builtin modules have no directory; their includes go
		// through the search path so on-disk overrides apply.
		dir: "",
		open: func() (io.ReadCloser, error) {
			file, err := r.builtin.Open(name)
			if err != nil {
				return nil, err
			}
			return file, nil
		},
	}, true
}

// IsNotFound reports whether err is an IncludeNotFoundError.
func IsNotFound(err error) bool {
	var notFound *IncludeNotFoundError
	return errors.As(err, &notFound)
}

// expandArgs expands d's arguments. The TEXT of ro-bind-text is file
// content, so it is kept literal apart from collapsing "$$".
func (r *Resolver) expandArgs(d directive.Directive) (directive.Directive, error) {
	args := d.Args
	var text []string
	if d.Kind() == directive.KindROBindText && len(args) > 0 {
		text = []string{environ.Unescape(args[0])}
		args = args[1:]
	}
	expanded, err := r.env.ExpandAll(args)
	if err != nil {
		return d, &directive.ArgumentError{Directive: d, Reason: err.Error()}
	}
	return d.WithArgs(append(text, expanded...)), nil
}
