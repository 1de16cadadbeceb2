package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrPollNotFound  = errors.New("poll not found")
	ErrDuplicateVote = errors.New("voter has already voted on this poll")
	ErrStorage       = errors.New("storage unavailable")

	ErrInvalidVoterToken = errors.New("invalid voter token")
)

// Validation failures. All of them match ErrValidation with errors.Is.
var (
	ErrEmptyQuestion   = fmt.Errorf("%w: question is required", ErrValidation)
	ErrTooFewOptions   = fmt.Errorf("%w: at least two options are required", ErrValidation)
	ErrEmptyOption     = fmt.Errorf("%w: options must not be blank", ErrValidation)
	ErrDuplicateOption = fmt.Errorf("%w: options must be distinct", ErrValidation)
	ErrInvalidOption   = fmt.Errorf("%w: option does not belong to this poll", ErrValidation)
)
