package main

import (
	"errors"

	"github.com/pdeblois/crunch/internal/replay"
)

// errNoParser is returned by stubParser.Analyze. internal/replay is
// deliberately an external-collaborator boundary (spec §6): this repo
// defines the contract a .slp decoder must satisfy but does not ship
// one. A production build links a real implementation in place of
// defaultParserFactory; until then Load always reports failure, so a
// crunch run degrades to all-None results rather than panicking.
var errNoParser = errors.New("crunch: no replay parser linked into this binary")

type stubParser struct{}

func (stubParser) Load(string) bool                   { return false }
func (stubParser) Replay() replay.Meta                { return replay.Meta{} }
func (stubParser) Analyze() (*replay.Analysis, error) { return nil, errNoParser }

func defaultParserFactory(_ int) replay.Parser { return stubParser{} }
