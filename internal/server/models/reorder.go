package models

import "github.com/dmitrijs2005/buildbio/internal/common"

// Direction moves an item one position earlier (up) or later (down).
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	}
	return "", common.ErrorValidation
}

// ReorderOutcome is the complete result of a reorder request.
type ReorderOutcome string

const (
	ReorderMoved    ReorderOutcome = "moved"
	ReorderBoundary ReorderOutcome = "boundary"
	ReorderNotFound ReorderOutcome = "not_found"
)
