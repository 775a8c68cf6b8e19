package model

// StartingHitpointsLevel is the Hitpoints level of a fresh character.
const StartingHitpointsLevel = 10

// SkillSet holds a level and accumulated xp per skill. It is a value type; copies are independent.
type SkillSet struct {
	levels [NumSkills]int
	xp     [NumSkills]int
}

// NewSkillSet returns a fresh set: every skill at level 1 except Hitpoints at 10, no xp.
func NewSkillSet() SkillSet {
	var s SkillSet
	for i := range s.levels {
		s.levels[i] = 1
	}
	s.levels[SkillHitpoints] = StartingHitpointsLevel
	return s
}

func (s *SkillSet) Level(t SkillType) int {
	if !t.Valid() {
		return 0
	}
	return s.levels[t]
}

func (s *SkillSet) XP(t SkillType) int {
	if !t.Valid() {
		return 0
	}
	return s.xp[t]
}

// Set overwrites the level and xp of one skill. Levels below 1 and negative xp are clamped.
func (s *SkillSet) Set(t SkillType, level, xp int) {
	if !t.Valid() {
		return
	}
	if level < 1 {
		level = 1
	}
	if xp < 0 {
		xp = 0
	}
	s.levels[t] = level
	s.xp[t] = xp
}

// NextLevelXP is the accumulated xp at which a skill at level gains its next level.
func NextLevelXP(level int) int {
	return level * level * 50
}

// AddXP grants xp to a skill and reports whether it gained a level.
// At most one level is gained per grant.
func (s *SkillSet) AddXP(t SkillType, amount int) bool {
	if !t.Valid() || amount <= 0 {
		return false
	}
	s.xp[t] += amount
	if s.xp[t] >= NextLevelXP(s.levels[t]) {
		s.levels[t]++
		return true
	}
	return false
}

// MaxHP is the hitpoint ceiling derived from the Hitpoints level.
func (s *SkillSet) MaxHP() int {
	return s.levels[SkillHitpoints] * 10
}
