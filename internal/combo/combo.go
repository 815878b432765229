// Package combo implements the combo detector: it walks a parsed
// replay's attack stream, groups attacks into punishes, applies the
// admissibility predicate, and produces Combo records with the derived
// frame/metadata fields the serializer needs (spec §4.E).
package combo

import (
	"math"

	"github.com/pdeblois/crunch/internal/replay"
)

// ReplayData is the origin metadata a Combo carries for JSON output. It
// is copied from replay.Meta by Combo.WithReplayData, per spec's note that the
// combo stores the path the parser reports, not necessarily the one the
// scanner yielded.
type ReplayData struct {
	AbsoluteReplayFilePath string
	Timestamp              string
	FirstGameFrame         int32
	LastGameFrame          int32
}

// Combo is a maximal run of attacks sharing one punish id that also
// satisfies the admissibility predicate.
type Combo struct {
	Attacks     []replay.Attack
	Punish      replay.Punish
	ReplayData  ReplayData
	IntroFrames int32
	OutroFrames int32
}

// DefaultIntroFrames and DefaultOutroFrames are the frame paddings used
// when a Config leaves them at zero.
const (
	DefaultIntroFrames int32 = 60
	DefaultOutroFrames int32 = 60

	// DefaultMinMoveCount, DefaultMinDamage and DefaultMaxSingleHitRatio
	// are the admissibility thresholds from spec §4.E.
	DefaultMinMoveCount       = 7
	DefaultMinDamage   uint16 = 60
	DefaultMaxSingleHitRatio  = 0.25

	// yoyoTag is the original source's hard-coded player identity. It is
	// kept only as the Config default — see Config.PlayerTag.
	yoyoTag = "YOYO#278"
)

// Config parameterizes combo detection. Zero-value fields are replaced
// with their documented defaults by Detect.
type Config struct {
	// PlayerTag selects which analyzed port is "ours": port 0 if
	// ap[0].TagCode == PlayerTag, else port 1. Defaults to the original
	// source's hard-coded "YOYO#278" — callers should normally set this
	// explicitly (spec §9 Open Questions: this was a hard-coded literal
	// in the source and is exposed as configuration here instead).
	PlayerTag string

	IntroFrames int32
	OutroFrames int32

	MinMoveCount      int
	MinDamage         uint16
	MaxSingleHitRatio float32

	// LoadFrame is the parser-format constant offset identifying the
	// first playable frame (spec §4.E). The real parser library would
	// export this; since replay is an external-collaborator boundary,
	// callers supply it.
	LoadFrame int32
}

func (c Config) withDefaults() Config {
	if c.PlayerTag == "" {
		c.PlayerTag = yoyoTag
	}
	if c.IntroFrames == 0 {
		c.IntroFrames = DefaultIntroFrames
	}
	if c.OutroFrames == 0 {
		c.OutroFrames = DefaultOutroFrames
	}
	if c.MinMoveCount == 0 {
		c.MinMoveCount = DefaultMinMoveCount
	}
	if c.MinDamage == 0 {
		c.MinDamage = DefaultMinDamage
	}
	if c.MaxSingleHitRatio == 0 {
		c.MaxSingleHitRatio = DefaultMaxSingleHitRatio
	}
	return c
}

// selectPlayer returns the AnalysisPlayer to scan, per spec §4.E port
// selection.
func selectPlayer(a *replay.Analysis, cfg Config) replay.AnalysisPlayer {
	if a.Players[0].TagCode == cfg.PlayerTag {
		return a.Players[0]
	}
	return a.Players[1]
}

// Detect walks one player's attack stream and returns the admissible
// combos found in it.
//
// State machine (spec §4.E): a combo run is "Building" while consecutive
// attacks share a punish id. The instant the punish id changes, the
// just-finished run is finalized and checked for admissibility, and a
// new run begins at the attack that changed it. The stream's sentinel
// (a Frame <= 0 entry) ends the loop WITHOUT finalizing any
// still-Building run — this drops the last group, matching the observed
// behavior of the original source (spec §9); it is preserved
// intentionally, not a bug in this port.
func Detect(a *replay.Analysis, cfg Config) []Combo {
	cfg = cfg.withDefaults()
	player := selectPlayer(a, cfg)

	var combos []Combo
	var building []replay.Attack

	for _, attack := range player.Attacks {
		if attack.Frame <= 0 {
			break // sentinel: stream ends, trailing run is never finalized
		}

		if len(building) > 0 && attack.PunishID != building[len(building)-1].PunishID {
			if c, ok := finalize(building, player, cfg); ok {
				combos = append(combos, c)
			}
			building = nil
		}

		building = append(building, attack)
	}

	return combos
}

// finalize attaches the punish to a just-finished run and returns it if
// it is admissible. Replay metadata is attached afterwards by
// WithReplayData.
func finalize(run []replay.Attack, player replay.AnalysisPlayer, cfg Config) (Combo, bool) {
	punishID := run[len(run)-1].PunishID
	if punishID < 0 || punishID >= len(player.Punishes) {
		return Combo{}, false
	}

	c := Combo{
		Attacks:     run,
		Punish:      player.Punishes[punishID],
		IntroFrames: cfg.IntroFrames,
		OutroFrames: cfg.OutroFrames,
	}

	if !admissible(c, cfg) {
		return Combo{}, false
	}
	return c, true
}

// WithReplayData attaches replay origin metadata to a combo. Called by
// the crunch-func glue once a combo has been produced, since Detect
// itself only sees the Analysis, not the Parser's Replay() accessor.
func (c Combo) WithReplayData(meta replay.Meta) Combo {
	c.ReplayData = ReplayData{
		AbsoluteReplayFilePath: meta.OriginalFile,
		Timestamp:              meta.StartTime,
		FirstGameFrame:         meta.FirstFrame,
		LastGameFrame:          meta.LastFrame,
	}
	return c
}

// DidKill reports whether the combo's punish ended in a non-sentinel
// kill direction (spec §4.E clause 1).
func (c Combo) DidKill() bool {
	return replay.DirNEUT < c.Punish.KillDir && c.Punish.KillDir < replay.DirLast
}

// TotalMoveCount is the total number of attacks in the combo (clause 2).
func (c Combo) TotalMoveCount() int { return len(c.Attacks) }

// UniqueMoveCount counts distinct move ids in the combo.
func (c Combo) UniqueMoveCount() int {
	seen := make(map[uint8]struct{}, len(c.Attacks))
	for _, a := range c.Attacks {
		seen[a.MoveID] = struct{}{}
	}
	return len(seen)
}

// TotalDamage sums attack damage as an unsigned 16-bit accumulator,
// matching the source's uint16_t total_damage (clause 3 uses this, and
// it can wrap exactly as the original does).
func (c Combo) TotalDamage() uint16 {
	var total uint16
	for _, a := range c.Attacks {
		total += a.Damage
	}
	return total
}

// highestSingleAttackDamage returns the largest single attack's damage,
// or 0 for an empty combo.
func (c Combo) highestSingleAttackDamage() uint16 {
	var max uint16
	for _, a := range c.Attacks {
		if a.Damage > max {
			max = a.Damage
		}
	}
	return max
}

// HighestSingleAttackDamageRatio is max(damage)/sum(damage) computed in
// float32, per spec §4.E clause 4. A zero total damage yields +Inf so
// the predicate always fails in that case.
func (c Combo) HighestSingleAttackDamageRatio() float32 {
	highest := float32(c.highestSingleAttackDamage())
	total := float32(c.TotalDamage())
	if total == 0 {
		return float32(math.Inf(1))
	}
	return highest / total
}

// admissible is the exact conjunction of spec §4.E's four clauses.
func admissible(c Combo, cfg Config) bool {
	return c.DidKill() &&
		c.TotalMoveCount() >= cfg.MinMoveCount &&
		c.TotalDamage() >= cfg.MinDamage &&
		c.HighestSingleAttackDamageRatio() <= cfg.MaxSingleHitRatio
}

// clampToGameFrames clamps target to [first, last], per spec §4.E.
func clampToGameFrames(target, first, last int32) int32 {
	if target < first {
		return first
	}
	if target > last {
		return last
	}
	return target
}

// MovieStartFrame is clamp(punish.start_frame - LOAD_FRAME -
// intro_frames, first_game_frame, last_game_frame).
func (c Combo) MovieStartFrame(loadFrame int32) int32 {
	target := (c.Punish.StartFrame - loadFrame) - c.IntroFrames
	return clampToGameFrames(target, c.ReplayData.FirstGameFrame, c.ReplayData.LastGameFrame)
}

// MovieEndFrame is clamp(punish.end_frame - LOAD_FRAME + outro_frames,
// first_game_frame, last_game_frame).
func (c Combo) MovieEndFrame(loadFrame int32) int32 {
	target := (c.Punish.EndFrame - loadFrame) + c.OutroFrames
	return clampToGameFrames(target, c.ReplayData.FirstGameFrame, c.ReplayData.LastGameFrame)
}
