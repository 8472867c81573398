package services

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient available balance")
	ErrPlanNotWithdrawable = errors.New("plan does not allow emergency withdrawal")
	ErrInvalidPlanState    = errors.New("invalid plan state")
	ErrInFlight            = errors.New("already being processed")
	ErrCardDeclined        = errors.New("card declined")
	ErrUpstream            = errors.New("payment processor error")
)
