package lattice

import (
	"fmt"
	"strconv"
	"strings"
)

// Level identifies a lattice tier for coordinate addressing.
type Level string

const (
	LevelShard Level = "shard"
	LevelCrown Level = "crown"
	LevelGrand Level = "grand"
)

// Coordinate prefixes per level. The full address is "<prefix>.<position>"
// with a 1-based position, e.g. "3.0.2" for the second shard.
const (
	shardPrefix     = "3.0"
	crownPrefix     = "3.1"
	grandPrefix     = "9.1"
	sovereignPrefix = "27.1" // declared tier, no formation logic
)

// CoordinateError indicates a malformed or unrecognized coordinate string or
// an invalid encode request. It signals either corrupted persisted data or a
// codec version mismatch and should be surfaced, not silently defaulted.
type CoordinateError struct {
	Coordinate string
	Reason     string
}

func (e *CoordinateError) Error() string {
	if e.Coordinate == "" {
		return fmt.Sprintf("lattice coordinate error: %s", e.Reason)
	}
	return fmt.Sprintf("lattice coordinate error: %q: %s", e.Coordinate, e.Reason)
}

// Coordinates is the decoded form of a lattice address.
type Coordinates struct {
	Level     Level  // Tier the address belongs to
	System    int    // Coordinate system family: 3, 9, or 27
	Position  int    // 1-based sequence number within the level
	Formatted string // The original formatted string, e.g. "3.1.1"
}

// EncodeCoordinates produces the formatted address for a level and position.
// Position must be >= 1. Returns a *CoordinateError for unknown levels or
// non-positive positions.
func EncodeCoordinates(level Level, position int) (string, error) {
	if position < 1 {
		return "", &CoordinateError{Reason: fmt.Sprintf("position must be >= 1, got %d", position)}
	}

	switch level {
	case LevelShard:
		return fmt.Sprintf("%s.%d", shardPrefix, position), nil
	case LevelCrown:
		return fmt.Sprintf("%s.%d", crownPrefix, position), nil
	case LevelGrand:
		return fmt.Sprintf("%s.%d", grandPrefix, position), nil
	default:
		return "", &CoordinateError{Reason: fmt.Sprintf("invalid lattice level: %q", level)}
	}
}

// DecodeCoordinates parses a formatted address into its components. Exactly
// three numeric dot-separated components are required, and the (system, level)
// pair is validated against a closed table: system 3 level 0 is a shard,
// system 3 level 1 is a crown, systems 9 and 27 are the grand tiers. Every
// malformed string fails deterministically with a *CoordinateError.
func DecodeCoordinates(coordinate string) (*Coordinates, error) {
	parts := strings.Split(coordinate, ".")
	if len(parts) != 3 {
		return nil, &CoordinateError{Coordinate: coordinate, Reason: fmt.Sprintf("expected 3 components, got %d", len(parts))}
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &CoordinateError{Coordinate: coordinate, Reason: fmt.Sprintf("non-numeric component %q", part)}
		}
		nums[i] = n
	}

	system, level, position := nums[0], nums[1], nums[2]

	if position < 1 {
		return nil, &CoordinateError{Coordinate: coordinate, Reason: fmt.Sprintf("position must be >= 1, got %d", position)}
	}

	var latticeLevel Level
	switch system {
	case 3:
		switch level {
		case 0:
			latticeLevel = LevelShard
		case 1:
			latticeLevel = LevelCrown
		default:
			return nil, &CoordinateError{Coordinate: coordinate, Reason: fmt.Sprintf("invalid level %d for system 3", level)}
		}
	case 9, 27:
		// Both the grand tier and the declared sovereign tier decode as grand.
		latticeLevel = LevelGrand
	default:
		return nil, &CoordinateError{Coordinate: coordinate, Reason: fmt.Sprintf("invalid coordinate system: %d", system)}
	}

	return &Coordinates{
		Level:     latticeLevel,
		System:    system,
		Position:  position,
		Formatted: coordinate,
	}, nil
}

// ValidateCoordinates reports whether a coordinate string is well-formed.
func ValidateCoordinates(coordinate string) error {
	_, err := DecodeCoordinates(coordinate)
	return err
}

// NextCoordinates computes the next free address at a level, given the full
// set of existing coordinates. Strings that do not decode at the requested
// level are ignored, so assignment is gap-tolerant; the result is always one
// past the maximum existing position (1 when none exist). Monotonic,
// collision-free assignment holds as long as callers always pass the full
// existing set.
func NextCoordinates(level Level, existing []string) (string, error) {
	maxPosition := 0
	for _, coordinate := range existing {
		decoded, err := DecodeCoordinates(coordinate)
		if err != nil || decoded.Level != level {
			continue
		}
		if decoded.Position > maxPosition {
			maxPosition = decoded.Position
		}
	}

	return EncodeCoordinates(level, maxPosition+1)
}
