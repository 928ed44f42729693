package domain

import "errors"

var (
	// ErrInsufficientData means an ensemble had no usable members. It is
	// fatal to that single estimation, never to the batch.
	ErrInsufficientData = errors.New("insufficient ensemble data")
	// ErrInvalidPrice means a quote price fell outside [0,1]. That is a
	// venue or parsing bug and must surface instead of being clamped.
	ErrInvalidPrice = errors.New("price outside unit interval")
	// ErrStaleQuote means a quote is older than the staleness window.
	ErrStaleQuote = errors.New("quote is stale")
	// ErrZeroBankroll means sizing was requested against a non-positive
	// bankroll.
	ErrZeroBankroll = errors.New("bankroll is not positive")
	// ErrOutOfOrder means backtest input violated timestamp ordering.
	ErrOutOfOrder = errors.New("rows out of timestamp order")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
