package services

import "errors"

// Registry errors
var (
	// ErrMissingTaskID means the page rendered an indicator without data-pk.
	ErrMissingTaskID = errors.New("registry: task indicator has no id")
	ErrUnknownTask   = errors.New("registry: no indicator for task")
)

// Task errors
var (
	ErrTaskNotFound     = errors.New("task: not found")
	ErrTaskInvalidInput = errors.New("task: invalid input")
)

// Hub errors
var (
	ErrSubscriberNotFound = errors.New("hub: subscriber not registered")
)
