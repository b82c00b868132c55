package loyalty

import "errors"

var (
	ErrInvalidPoints      = errors.New("points must be a positive integer")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrProgramNotFound    = errors.New("no active loyalty program")
	ErrAccountNotFound    = errors.New("loyalty account not found")
	ErrInvalidProgram     = errors.New("invalid loyalty program")
	ErrReferralNotFound   = errors.New("referral not found")
)
