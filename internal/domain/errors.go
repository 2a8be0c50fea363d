package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrNoMarketData        = errors.New("no qualifying market data")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrNotConfigured       = errors.New("not configured")
	ErrNoSubOrganization   = errors.New("user has no sub-organization")
)
