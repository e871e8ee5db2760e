package model

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var (
	ErrInvalidDancerCount = fmt.Errorf("numberOfDancers must be between %d and %d", MinDancers, MaxDancers)
	ErrInvalidPositions   = errors.New("invalid positions")
)

// ValidateDancerCount reports whether n is an allowed dancer count.
func ValidateDancerCount(n int) error {
	if n < MinDancers || n > MaxDancers {
		return ErrInvalidDancerCount
	}
	return nil
}

// SeedPositions evenly spreads n dancers across the stage at mid depth.
func SeedPositions(n int) []Position {
	return lo.Times(n, func(i int) Position {
		return Position{DancerIndex: i, X: spread(i, n), Y: StageMidY}
	})
}

// RepairPositions fits a position set to n dancers: indices >= n are dropped
// and missing indices are added on the back line.
func RepairPositions(positions []Position, n int) []Position {
	kept := lo.Filter(ClonePositions(positions), func(p Position, _ int) bool {
		return p.DancerIndex >= 0 && p.DancerIndex < n
	})
	present := lo.SliceToMap(kept, func(p Position) (int, struct{}) {
		return p.DancerIndex, struct{}{}
	})
	for i := 0; i < n; i++ {
		if _, ok := present[i]; ok {
			continue
		}
		kept = append(kept, Position{DancerIndex: i, X: spread(i, n), Y: BackLineY})
	}
	return kept
}

// RepairFormations applies RepairPositions to every formation and reports
// whether anything changed.
func RepairFormations(formations []Formation, n int) ([]Formation, bool) {
	changed := false
	out := lo.Map(formations, func(f Formation, _ int) Formation {
		repaired := RepairPositions(f.Positions, n)
		if !samePositions(f.Positions, repaired) {
			changed = true
		}
		return Formation{ID: f.ID, Positions: repaired}
	})
	return out, changed
}

// ValidatePositions checks that positions hold exactly one in-bounds entry per
// dancer index in [0, n).
func ValidatePositions(positions []Position, n int) error {
	if len(positions) != n {
		return fmt.Errorf("%w: expected %d positions, got %d", ErrInvalidPositions, n, len(positions))
	}
	seen := make(map[int]bool, n)
	for _, p := range positions {
		if p.DancerIndex < 0 || p.DancerIndex >= n {
			return fmt.Errorf("%w: dancer index %d out of range", ErrInvalidPositions, p.DancerIndex)
		}
		if seen[p.DancerIndex] {
			return fmt.Errorf("%w: duplicate dancer index %d", ErrInvalidPositions, p.DancerIndex)
		}
		seen[p.DancerIndex] = true
		if !inStage(p.X) || !inStage(p.Y) {
			return fmt.Errorf("%w: dancer %d outside stage", ErrInvalidPositions, p.DancerIndex)
		}
	}
	return nil
}

// Violations lists the invariant problems of a stored dance.
func Violations(d *Dance) []string {
	var problems []string
	if err := ValidateDancerCount(d.NumberOfDancers); err != nil {
		problems = append(problems, err.Error())
	}
	if len(d.Formations) == 0 {
		problems = append(problems, "no formations")
	}
	for i, f := range d.Formations {
		if err := ValidatePositions(f.Positions, d.NumberOfDancers); err != nil {
			problems = append(problems, fmt.Sprintf("formation %d (%s): %v", i+1, f.ID, err))
		}
	}
	return problems
}

// ClampPercent clamps v into the stage range.
func ClampPercent(v float64) float64 {
	return lo.Clamp(v, StageMin, StageMax)
}

// ClonePositions returns a copy of the slice; nil stays nil.
func ClonePositions(positions []Position) []Position {
	if positions == nil {
		return nil
	}
	out := make([]Position, len(positions))
	copy(out, positions)
	return out
}

// CloneFormations deep-copies a formation list.
func CloneFormations(formations []Formation) []Formation {
	if formations == nil {
		return nil
	}
	return lo.Map(formations, func(f Formation, _ int) Formation {
		return f.Clone()
	})
}

func spread(i, n int) float64 {
	if n <= 1 {
		return SoloStageX
	}
	return StageMax * float64(i) / float64(n-1)
}

func inStage(v float64) bool {
	return v >= StageMin && v <= StageMax
}

func samePositions(a, b []Position) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
