// Package level maps cumulative lifetime score to the static 20-tier
// progression table and derives progress toward the next tier.
package level

// Level is one tier of the progression table
type Level struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
}

// Progress describes where a score sits inside its tier
type Progress struct {
	CurrentLevel         Level   `json:"current_level"`
	NextLevel            *Level  `json:"next_level,omitempty"`
	Progress             float64 `json:"progress"`
	PointsToNext         int64   `json:"points_to_next"`
	PointsInCurrentLevel int64   `json:"points_in_current_level"`
}

// LevelUp reports a tier transition between two lifetime scores
type LevelUp struct {
	LeveledUp     bool  `json:"leveled_up"`
	PreviousLevel Level `json:"previous_level"`
	NewLevel      Level `json:"new_level"`
}

// levels is ordered by MinPoints; the first tier starts at zero so every
// score maps to some tier.
var levels = []Level{
	{1, "Tourist", 0},
	{2, "Backpacker", 1000},
	{3, "Wanderer", 3000},
	{4, "Scout", 6000},
	{5, "Trailblazer", 10000},
	{6, "Pathfinder", 20000},
	{7, "Navigator", 40000},
	{8, "Surveyor", 70000},
	{9, "Cartographer", 110000},
	{10, "Adventurer", 160000},
	{11, "Voyager", 230000},
	{12, "Explorer", 320000},
	{13, "Globetrotter", 430000},
	{14, "Expeditionist", 560000},
	{15, "Geographer", 720000},
	{16, "Atlas Scholar", 920000},
	{17, "World Authority", 1160000},
	{18, "Continental Master", 1450000},
	{19, "Planetary Sage", 1800000},
	{20, "Geolegend", 2400000},
}

// Levels returns a copy of the progression table
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// UserLevel returns the highest tier whose MinPoints does not exceed
// totalPoints. Negative scores map to the first tier.
func UserLevel(totalPoints int64) Level {
	current := levels[0]
	for _, l := range levels {
		if l.MinPoints > totalPoints {
			break
		}
		current = l
	}
	return current
}

// LevelProgress computes progress toward the next tier. At the maximum
// tier NextLevel is nil, Progress is 1 and PointsToNext is 0.
func LevelProgress(totalPoints int64) Progress {
	current := UserLevel(totalPoints)
	if current.Number == len(levels) {
		return Progress{
			CurrentLevel:         current,
			NextLevel:            nil,
			Progress:             1,
			PointsToNext:         0,
			PointsInCurrentLevel: totalPoints - current.MinPoints,
		}
	}

	next := levels[current.Number] // tiers are numbered from 1
	span := next.MinPoints - current.MinPoints
	in := totalPoints - current.MinPoints
	if in < 0 {
		in = 0
	}
	return Progress{
		CurrentLevel:         current,
		NextLevel:            &next,
		Progress:             float64(in) / float64(span),
		PointsToNext:         next.MinPoints - totalPoints,
		PointsInCurrentLevel: in,
	}
}

// CheckLevelUp compares the tiers before and after a score change. Pure;
// the caller decides whether a transition triggers any notification.
func CheckLevelUp(previousPoints, newPoints int64) LevelUp {
	prev := UserLevel(previousPoints)
	now := UserLevel(newPoints)
	return LevelUp{
		LeveledUp:     now.Number > prev.Number,
		PreviousLevel: prev,
		NewLevel:      now,
	}
}
