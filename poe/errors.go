package poe

import "errors"

var (
	ErrAlreadyClaimed = errors.New("poe: content already claimed")
	ErrNotFound       = errors.New("poe: claim not found")
	ErrNotOwner       = errors.New("poe: caller is not the owner of the claim")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
