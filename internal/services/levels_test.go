package services

import "testing"

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{1000, 5},
		{11999, 9},
		{12000, 10},
		{16999, 10},
		{17000, 11},
		{22000, 12},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestLevelForXPIsMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := int64(0); xp <= 40000; xp += 7 {
		level := LevelForXP(xp)
		if level < prev {
			t.Fatalf("level dropped from %d to %d at %d XP", prev, level, xp)
		}
		if again := LevelForXP(xp); again != level {
			t.Fatalf("LevelForXP(%d) not stable: %d then %d", xp, level, again)
		}
		prev = level
	}
}

func TestXPForLevelMatchesLevelForXP(t *testing.T) {
	for level := 1; level <= 15; level++ {
		xp := XPForLevel(level)
		if got := LevelForXP(xp); got != level {
			t.Errorf("LevelForXP(XPForLevel(%d)) = %d", level, got)
		}
		if level > 1 && LevelForXP(xp-1) != level-1 {
			t.Errorf("one XP below level %d should be level %d", level, level-1)
		}
	}
}
