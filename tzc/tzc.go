// Package tzc compiles tzdb source files into zone artifacts and a zone info map.
package tzc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/ngrash/go-zoneinfo/internal/logger"
	"github.com/ngrash/go-zoneinfo/internal/tzexpand"
	"github.com/ngrash/go-zoneinfo/internal/tzir"
	"github.com/ngrash/go-zoneinfo/tzdata"
	"github.com/ngrash/go-zoneinfo/tzsource"
	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

// UnresolvedLinkError is reported for a link whose target is neither a
// compiled zone nor a resolved link.
type UnresolvedLinkError struct {
	Alias  string
	Target string
}

func (e *UnresolvedLinkError) Error() string {
	return fmt.Sprintf("link %s: target %s not found", e.Alias, e.Target)
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger warnings are reported to. The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithBuildOptions sets the options zones are assembled with.
func WithBuildOptions(o tzir.Options) Option {
	return func(c *Compiler) { c.build = o }
}

// WithWindow sets the years compiled zones are validated in.
func WithWindow(w zoneinfo.Window) Option {
	return func(c *Compiler) { c.window = w }
}

// WithoutValidation turns off the consistency and round trip checks.
func WithoutValidation() Option {
	return func(c *Compiler) { c.validate = false }
}

type zoneSource struct {
	tzdata.Zone
	file string
}

type linkSource struct {
	tzdata.LinkLine
	file string
}

// Compiler collects source files and compiles them.
// A Compiler is meant for one run and is not safe for concurrent use.
type Compiler struct {
	logger   *slog.Logger
	build    tzir.Options
	window   zoneinfo.Window
	validate bool

	rules    []tzdata.RuleLine
	zones    []zoneSource
	links    []linkSource
	problems []error
}

// New returns a compiler with the default options, modified by opts.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:   logger.Discard(),
		build:    tzir.DefaultOptions(),
		window:   zoneinfo.DefaultWindow,
		validate: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AddFile parses the source file read from r. If the file is malformed
// nothing of it is added and the *tzdata.FormatError is returned wrapped
// with name.
func (c *Compiler) AddFile(name string, r io.Reader) error {
	f, err := tzdata.Parse(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, s := range f.Skipped {
		c.logger.Warn("skipped line", "file", name, "line", s.Line, "reason", s.Reason)
	}
	c.rules = append(c.rules, f.RuleLines...)
	for _, z := range f.Zones {
		c.zones = append(c.zones, zoneSource{Zone: z, file: name})
	}
	for _, l := range f.LinkLines {
		c.links = append(c.links, linkSource{LinkLine: l, file: name})
	}
	return nil
}

// AddRelease adds every data file of rel in name order. A malformed file is
// skipped, logged and reported in Result.Problems, the others are still added.
func (c *Compiler) AddRelease(rel *tzsource.Release) error {
	for _, name := range rel.DataFiles.Names() {
		err := c.AddFile(name, bytes.NewReader(rel.DataFiles[name]))
		var fe *tzdata.FormatError
		if errors.As(err, &fe) {
			c.logger.Warn("skipping malformed file", "file", name, "error", err)
			c.problems = append(c.problems, err)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Result is the outcome of a compiler run.
type Result struct {
	// Zones holds the compiled zones by id.
	Zones map[string]*zoneinfo.Zone
	// Links maps every resolved alias to the id of a compiled zone.
	Links map[string]string
	// Map resolves zone ids and aliases.
	Map *zoneinfo.Map
	// Problems are the malformed files of a release, the zones and links
	// that were dropped and the zones that failed validation but were kept.
	Problems []error
}

// Compile builds every zone added so far, resolves the links and builds the
// zone info map. Problems with single zones or links do not fail the run,
// they are logged and collected in Result.Problems.
func (c *Compiler) Compile() (*Result, error) {
	rules := tzexpand.Group(c.rules)
	res := &Result{
		Zones:    make(map[string]*zoneinfo.Zone),
		Links:    make(map[string]string),
		Problems: append([]error(nil), c.problems...),
	}

	for _, src := range c.zones {
		log := c.logger.With("zone", src.Name, "file", src.file)
		z, err := tzir.Build(src.Zone, rules, c.build)
		var unresolved *tzir.UnresolvedRuleError
		if errors.As(err, &unresolved) {
			log.Warn("dropping zone", "error", err)
			res.Problems = append(res.Problems, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("build zone %s: %w", src.Name, err)
		}
		if _, ok := res.Zones[src.Name]; ok {
			log.Warn("duplicate zone, later definition wins")
		}
		if c.validate {
			for _, check := range []func() error{
				func() error { return zoneinfo.Validate(z, c.window) },
				func() error { return zoneinfo.CheckRoundTrip(z) },
			} {
				if err := check(); err != nil {
					log.Warn("zone failed validation", "error", err)
					res.Problems = append(res.Problems, err)
				}
			}
		}
		log.Debug("compiled zone", "transitions", len(z.Transitions), "tail", z.Tail != nil)
		res.Zones[src.Name] = z
	}

	c.resolveLinks(res)

	ids := make(map[string]string, len(res.Zones)+len(res.Links))
	for id := range res.Zones {
		ids[id] = id
	}
	for alias, target := range res.Links {
		ids[alias] = target
	}
	m, err := zoneinfo.BuildMap(ids)
	if err != nil {
		return nil, fmt.Errorf("build zone info map: %w", err)
	}
	res.Map = m
	return res, nil
}

// resolveLinks resolves links to zones first and then links to resolved links.
func (c *Compiler) resolveLinks(res *Result) {
	var pending []linkSource
	for _, l := range c.links {
		if _, ok := res.Zones[l.To]; ok {
			c.logger.Warn("link shadows zone, keeping zone", "alias", l.To, "file", l.file)
			continue
		}
		if _, ok := res.Zones[l.From]; ok {
			res.Links[l.To] = l.From
			continue
		}
		pending = append(pending, l)
	}
	for _, l := range pending {
		if target, ok := res.Links[l.From]; ok {
			res.Links[l.To] = target
			continue
		}
		err := &UnresolvedLinkError{Alias: l.To, Target: l.From}
		c.logger.Warn("dropping link", "alias", l.To, "file", l.file, "error", err)
		res.Problems = append(res.Problems, err)
	}
}

// Writer is where a Result is saved to.
type Writer interface {
	Put(name string, data []byte) error
}

// Save encodes every zone and stores it under its id in lexical order,
// followed by the zone info map under zoneinfo.MapName.
func (r *Result) Save(w Writer) error {
	ids := make([]string, 0, len(r.Zones))
	for id := range r.Zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	for _, id := range ids {
		buf.Reset()
		if err := r.Zones[id].Encode(&buf); err != nil {
			return fmt.Errorf("encode zone %s: %w", id, err)
		}
		if err := w.Put(id, bytes.Clone(buf.Bytes())); err != nil {
			return fmt.Errorf("write zone %s: %w", id, err)
		}
	}

	buf.Reset()
	if err := r.Map.Encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", zoneinfo.MapName, err)
	}
	if err := w.Put(zoneinfo.MapName, bytes.Clone(buf.Bytes())); err != nil {
		return fmt.Errorf("write %s: %w", zoneinfo.MapName, err)
	}
	return nil
}
