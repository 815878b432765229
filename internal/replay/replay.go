// Package replay defines the contract the crunch engine expects from a
// .slp replay parser. It is deliberately an external-collaborator
// boundary: this package holds no parsing logic, only the types and
// interface a real parser library would implement, so the rest of the
// module (the crunch engine, the combo detector) never compiles against
// a concrete binary format.
package replay

// KillDir enumerates the directions a punish can end in. NEUT and Last
// are sentinel bounds: any value strictly between them counts as a kill,
// per spec §4.E clause 1.
type KillDir int

const (
	DirNEUT KillDir = iota
	DirLeft
	DirRight
	DirUp
	DirDown
	DirLast // sentinel upper bound, never itself a kill direction
)

// Attack is a single hit event in a player's attack stream. A Frame <= 0
// marks the sentinel end of the stream.
type Attack struct {
	Frame    int32
	MoveID   uint8
	Damage   uint16
	PunishID int
}

// Punish is a contiguous offensive exchange identified by an id.
type Punish struct {
	StartFrame int32
	EndFrame   int32
	KillDir    KillDir
}

// Meta is the replay-level metadata the combo serializer needs: origin
// path, start timestamp, and the playable frame range.
type Meta struct {
	OriginalFile string
	StartTime    string // ISO-8601 Z, e.g. "2024-03-07T15:04:09Z"
	FirstFrame   int32
	LastFrame    int32
	Errors       int
}

// AnalysisPlayer is one player's attack/punish stream from a parsed
// replay.
type AnalysisPlayer struct {
	TagCode  string
	Attacks  []Attack // terminated by a Frame <= 0 sentinel entry
	Punishes []Punish // indexed by Attack.PunishID
}

// Analysis is the per-port output of Parser.Analyze.
type Analysis struct {
	Players [2]AnalysisPlayer
}

// Parser is the capability the crunch engine's per-worker driver
// consumes (spec §6). A real implementation wraps a .slp decoder;
// replaytest.Fake provides one for tests.
type Parser interface {
	// Load reads and validates the file at path, returning false on
	// failure. The engine also checks Replay().Errors == 0 before
	// treating a load as successful.
	Load(path string) bool
	// Replay exposes origin metadata. Valid only after a successful Load.
	Replay() Meta
	// Analyze parses the attack/punish streams. Valid only after a
	// successful Load.
	Analyze() (*Analysis, error)
}

// Factory constructs a new Parser. The engine passes 0 for verbosity, a
// fixed, opaque construction argument per spec §6.
type Factory func(verbosity int) Parser
