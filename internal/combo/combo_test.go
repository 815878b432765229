package combo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdeblois/crunch/internal/replay"
)

const loadFrame = int32(0)

func attack(frame int32, moveID uint8, damage uint16, punishID int) replay.Attack {
	return replay.Attack{Frame: frame, MoveID: moveID, Damage: damage, PunishID: punishID}
}

func sentinel() replay.Attack { return replay.Attack{Frame: 0} }

func analysisFor(attacks []replay.Attack, punishes []replay.Punish, tag string) *replay.Analysis {
	return &replay.Analysis{Players: [2]replay.AnalysisPlayer{
		{TagCode: tag, Attacks: attacks, Punishes: punishes},
		{TagCode: "OTHER#000"},
	}}
}

func TestDetectHappyPath(t *testing.T) {
	// spec §8 E4: 7 attacks of punish 1 (damage 10 each), then a
	// different punish id closes the run. Total 70, max/sum = 1/7 <= 0.25.
	attacks := []replay.Attack{
		attack(1, 1, 10, 1), attack(2, 1, 10, 1), attack(3, 1, 10, 1),
		attack(4, 1, 10, 1), attack(5, 1, 10, 1), attack(6, 1, 10, 1),
		attack(7, 1, 10, 1),
		attack(8, 2, 0, 2),
		sentinel(),
	}
	punishes := []replay.Punish{{}, {StartFrame: 10, EndFrame: 20, KillDir: replay.DirUp}, {}}
	a := analysisFor(attacks, punishes, "YOYO#278")

	combos := Detect(a, Config{PlayerTag: "YOYO#278"})
	require.Len(t, combos, 1)

	c := combos[0]
	require.Equal(t, 7, c.TotalMoveCount())
	require.Equal(t, uint16(70), c.TotalDamage())
	require.True(t, c.DidKill())
}

func TestTrailingRunIsNeverFinalized(t *testing.T) {
	attacks := []replay.Attack{
		attack(1, 1, 10, 1), attack(2, 1, 10, 1), attack(3, 1, 10, 1),
		attack(4, 1, 10, 1), attack(5, 1, 10, 1), attack(6, 1, 10, 1),
		attack(7, 1, 10, 1),
		sentinel(), // ends the stream while still Building; never finalized
	}
	punishes := []replay.Punish{{}, {StartFrame: 10, EndFrame: 20, KillDir: replay.DirUp}}
	a := analysisFor(attacks, punishes, "YOYO#278")

	combos := Detect(a, Config{PlayerTag: "YOYO#278"})
	require.Empty(t, combos, "trailing run should never be finalized")
}

func TestAdmissibilityClauses(t *testing.T) {
	baseAttacks := func(n int, damage uint16) []replay.Attack {
		out := make([]replay.Attack, n)
		for i := range out {
			out[i] = attack(int32(i+1), 1, damage, 1)
		}
		return out
	}

	cfg := Config{PlayerTag: "YOYO#278"}

	tests := []struct {
		name    string
		attacks []replay.Attack
		kill    replay.KillDir
		want    bool
	}{
		{"all four satisfied", baseAttacks(7, 10), replay.DirUp, true},
		{"fails DidKill", baseAttacks(7, 10), replay.DirNEUT, false},
		{"fails move count", baseAttacks(6, 10), replay.DirUp, false},
		{"fails total damage", baseAttacks(7, 5), replay.DirUp, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attacks := append(append([]replay.Attack{}, tt.attacks...), attack(100, 2, 0, 2), sentinel())
			punishes := []replay.Punish{{}, {StartFrame: 10, EndFrame: 20, KillDir: tt.kill}, {}}
			a := analysisFor(attacks, punishes, "YOYO#278")

			combos := Detect(a, cfg)
			require.Equal(t, tt.want, len(combos) == 1)
		})
	}
}

func TestHighestSingleAttackDamageRatioFailsClauseIndependently(t *testing.T) {
	// 7 attacks, total >= 60, kill true, but one attack dominates the
	// damage so the ratio clause alone should reject it.
	attacks := []replay.Attack{
		attack(1, 1, 55, 1), attack(2, 1, 1, 1), attack(3, 1, 1, 1),
		attack(4, 1, 1, 1), attack(5, 1, 1, 1), attack(6, 1, 1, 1),
		attack(7, 1, 1, 1),
		attack(8, 2, 0, 2), sentinel(),
	}
	punishes := []replay.Punish{{}, {StartFrame: 10, EndFrame: 20, KillDir: replay.DirUp}, {}}
	a := analysisFor(attacks, punishes, "YOYO#278")

	combos := Detect(a, Config{PlayerTag: "YOYO#278"})
	require.Empty(t, combos, "ratio clause should reject the combo on its own")
}

func TestHighestSingleAttackDamageRatioZeroDamageIsInfinite(t *testing.T) {
	c := Combo{Attacks: []replay.Attack{{Damage: 0}, {Damage: 0}}}
	ratio := c.HighestSingleAttackDamageRatio()
	require.True(t, math.IsInf(float64(ratio), 1), "ratio = %v, want +Inf", ratio)
}

func TestUniqueMoveCount(t *testing.T) {
	c := Combo{Attacks: []replay.Attack{{MoveID: 1}, {MoveID: 1}, {MoveID: 2}, {MoveID: 3}}}
	require.Equal(t, 3, c.UniqueMoveCount())
}

func TestMovieFramesClampToGameBounds(t *testing.T) {
	c := Combo{
		Punish:      replay.Punish{StartFrame: 100, EndFrame: 200},
		IntroFrames: 60,
		OutroFrames: 60,
		ReplayData:  ReplayData{FirstGameFrame: 50, LastGameFrame: 150},
	}
	require.Equal(t, int32(50), c.MovieStartFrame(loadFrame), "clamped to first game frame")
	require.Equal(t, int32(150), c.MovieEndFrame(loadFrame), "clamped to last game frame")
}

func TestMovieFramesWithinBounds(t *testing.T) {
	c := Combo{
		Punish:      replay.Punish{StartFrame: 1000, EndFrame: 1100},
		IntroFrames: 60,
		OutroFrames: 60,
		ReplayData:  ReplayData{FirstGameFrame: 0, LastGameFrame: 10000},
	}
	require.Equal(t, int32(940), c.MovieStartFrame(loadFrame))
	require.Equal(t, int32(1160), c.MovieEndFrame(loadFrame))
}

func TestPortSelectionByTag(t *testing.T) {
	attacks0 := []replay.Attack{sentinel()}
	attacks1 := []replay.Attack{
		attack(1, 1, 10, 1), attack(2, 1, 10, 1), attack(3, 1, 10, 1),
		attack(4, 1, 10, 1), attack(5, 1, 10, 1), attack(6, 1, 10, 1),
		attack(7, 1, 10, 1), attack(8, 2, 0, 2), sentinel(),
	}
	punishes := []replay.Punish{{}, {StartFrame: 10, EndFrame: 20, KillDir: replay.DirUp}, {}}
	a := &replay.Analysis{Players: [2]replay.AnalysisPlayer{
		{TagCode: "SOMEONE#999", Attacks: attacks0, Punishes: punishes},
		{TagCode: "YOYO#278", Attacks: attacks1, Punishes: punishes},
	}}

	combos := Detect(a, Config{PlayerTag: "YOYO#278"})
	require.Len(t, combos, 1, "port 1 should be selected")
}
