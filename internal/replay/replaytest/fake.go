// Package replaytest provides a fake replay.Parser for unit and
// integration tests, the same role dupedog's internal/testfs plays for
// filesystem fixtures.
package replaytest

import (
	"fmt"

	"github.com/pdeblois/crunch/internal/replay"
)

// Fixture is a canned Load result keyed by path.
type Fixture struct {
	Meta      replay.Meta
	Analysis  *replay.Analysis
	LoadFails bool // Load returns false
}

// Fake is a replay.Parser backed by an in-memory fixture table. Construct
// one per test with NewFactory and hand the Factory to the crunch engine.
type Fake struct {
	fixtures map[string]Fixture
	loaded   string
}

// NewFactory returns a replay.Factory that always produces Fake parsers
// sharing the given fixture table, keyed by the path passed to Load.
func NewFactory(fixtures map[string]Fixture) replay.Factory {
	return func(verbosity int) replay.Parser {
		return &Fake{fixtures: fixtures}
	}
}

func (f *Fake) Load(path string) bool {
	fx, ok := f.fixtures[path]
	if !ok {
		return false
	}
	f.loaded = path
	return !fx.LoadFails
}

func (f *Fake) Replay() replay.Meta {
	return f.fixtures[f.loaded].Meta
}

func (f *Fake) Analyze() (*replay.Analysis, error) {
	fx, ok := f.fixtures[f.loaded]
	if !ok {
		return nil, fmt.Errorf("replaytest: no fixture loaded for %q", f.loaded)
	}
	if fx.Analysis == nil {
		return &replay.Analysis{}, nil
	}
	return fx.Analysis, nil
}
