package services

// LevelThresholds holds the cumulative XP needed to reach level i+1
var LevelThresholds = []int64{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 12000}

// XPPerLevelBeyondTable is the XP step for every level past the table
const XPPerLevelBeyondTable int64 = 5000

// LevelForXP maps cumulative experience to a level. Pure and monotonic.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}

	level := 1
	for i, threshold := range LevelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}

	last := LevelThresholds[len(LevelThresholds)-1]
	if xp >= last {
		level += int((xp - last) / XPPerLevelBeyondTable)
	}
	return level
}

// XPForLevel returns the cumulative XP at which level is reached
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= len(LevelThresholds) {
		return LevelThresholds[level-1]
	}
	last := LevelThresholds[len(LevelThresholds)-1]
	return last + int64(level-len(LevelThresholds))*XPPerLevelBeyondTable
}
