package entity

import "errors"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNoFreeCell     = errors.New("no free cell for city")
)
