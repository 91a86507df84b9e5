package service

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrRoomFull       = errors.New("room is full")
	ErrPlayerNotFound = errors.New("player not found")
	ErrDeckEmpty      = errors.New("deck is empty")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrForbidden      = errors.New("forbidden")
)
