package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound        = errors.New("auction not found")
	ErrAuctionNotActive       = errors.New("auction is not active")
	ErrSelfBidForbidden       = errors.New("seller cannot bid on own auction")
	ErrBidTooLow              = errors.New("bid amount is below the minimum")
	ErrInvalidAutoBid         = errors.New("auto bid requires a max amount at least equal to the bid amount")
	ErrInvalidAmount          = errors.New("bid amount cannot be zero or less than zero")
	ErrCancellationBlocked    = errors.New("auction with bids cannot be cancelled")
	ErrConcurrentModification = errors.New("auction was modified concurrently, retry")
	ErrAuctionNotDraft        = errors.New("auction is not in draft")
	ErrStaleSchedule          = errors.New("auction end time is already in the past")
	ErrAuctionNotEnded        = errors.New("auction has not ended yet")
	ErrAuctionAlreadyFinal    = errors.New("auction is already completed or cancelled")
)

// BidTooLowError carries the computed minimum so the caller can correct the
// amount and retry. errors.Is(err, ErrBidTooLow) matches it.
type BidTooLowError struct {
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount is below the minimum of %s", e.Minimum.StringFixed(2))
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
