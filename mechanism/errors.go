package mechanism

import (
	"errors"
	"fmt"

	"github.com/calehh/qf-app/qfmath"
)

// Error kinds. Every error returned by the mechanism is one of these or wraps
// one, so callers can classify with errors.Is.
var (
	ErrOverflow              = qfmath.ErrOverflow
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidState          = errors.New("invalid state")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientPower     = errors.New("insufficient voting power")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

var (
	ErrProposalNoexists   = fmt.Errorf("%w: proposal noexists", ErrInvalidInput)
	ErrZeroAddress        = fmt.Errorf("%w: zero address", ErrInvalidInput)
	ErrZeroAmount         = fmt.Errorf("%w: zero amount", ErrInvalidInput)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrInvalidInput)
	ErrRecipientUsed      = fmt.Errorf("%w: recipient already has a proposal", ErrInvalidInput)
	ErrRecipientMismatch  = fmt.Errorf("%w: recipient mismatch", ErrInvalidInput)
	ErrUnsupportedSupport = fmt.Errorf("%w: only for votes are supported", ErrInvalidInput)
	ErrZeroAssets         = fmt.Errorf("%w: redeem yields zero assets", ErrInvalidInput)

	ErrAlreadyRegistered  = fmt.Errorf("%w: already registered", ErrInvalidState)
	ErrNotRegistered      = fmt.Errorf("%w: not registered", ErrInvalidState)
	ErrVotingClosed       = fmt.Errorf("%w: voting closed", ErrInvalidState)
	ErrNotVotingWindow    = fmt.Errorf("%w: outside voting window", ErrInvalidState)
	ErrAlreadyVoted       = fmt.Errorf("%w: already voted", ErrInvalidState)
	ErrProposalCanceled   = fmt.Errorf("%w: proposal canceled", ErrInvalidState)
	ErrNotCancelable      = fmt.Errorf("%w: proposal not cancelable", ErrInvalidState)
	ErrVotingNotEnded     = fmt.Errorf("%w: voting not ended", ErrInvalidState)
	ErrAlreadyFinalized   = fmt.Errorf("%w: tally already finalized", ErrInvalidState)
	ErrAlreadyQueued      = fmt.Errorf("%w: proposal already queued", ErrInvalidState)
	ErrNoQuorum           = fmt.Errorf("%w: proposal has not succeeded", ErrInvalidState)
	ErrQueueClosed        = fmt.Errorf("%w: queueing closed at redemption start", ErrInvalidState)
	ErrRedeemWindowClosed = fmt.Errorf("%w: redeem window closed", ErrInvalidState)
	ErrTransferLocked     = fmt.Errorf("%w: share transfers locked", ErrInvalidState)
	ErrAlphaFrozen        = fmt.Errorf("%w: alpha frozen after finalize", ErrInvalidState)
	ErrSweepTooEarly      = fmt.Errorf("%w: grace period not over", ErrInvalidState)
	ErrReentrant          = fmt.Errorf("%w: reentrant call", ErrInvalidState)

	ErrNotProposer = fmt.Errorf("%w: not proposer", ErrUnauthorized)
	ErrNotOwner    = fmt.Errorf("%w: not owner", ErrUnauthorized)
)
