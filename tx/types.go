package tx

import (
	"errors"
)

type QFTxType uint8

const (
	QFTxTypeUnknown        QFTxType = 0
	QFTxTypeSignup         QFTxType = 1
	QFTxTypePropose        QFTxType = 2
	QFTxTypeVote           QFTxType = 3
	QFTxTypeCancel         QFTxType = 4
	QFTxTypeFinalize       QFTxType = 5
	QFTxTypeQueue          QFTxType = 6
	QFTxTypeRedeem         QFTxType = 7
	QFTxTypeTransferShares QFTxType = 8
	QFTxTypeApprove        QFTxType = 9
	QFTxTypeSetAlpha       QFTxType = 10
	QFTxTypeFundPool       QFTxType = 11
	QFTxTypeGrantProposer  QFTxType = 12
	QFTxTypeSweep          QFTxType = 13
	QFTxTypeSend           QFTxType = 14
)

var txTypeNames = map[QFTxType]string{
	QFTxTypeSignup:         "signup",
	QFTxTypePropose:        "propose",
	QFTxTypeVote:           "vote",
	QFTxTypeCancel:         "cancel",
	QFTxTypeFinalize:       "finalize",
	QFTxTypeQueue:          "queue",
	QFTxTypeRedeem:         "redeem",
	QFTxTypeTransferShares: "transfer_shares",
	QFTxTypeApprove:        "approve",
	QFTxTypeSetAlpha:       "set_alpha",
	QFTxTypeFundPool:       "fund_pool",
	QFTxTypeGrantProposer:  "grant_proposer",
	QFTxTypeSweep:          "sweep",
	QFTxTypeSend:           "send",
}

func (t QFTxType) String() string {
	if s, ok := txTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

const (
	QFTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrTxSenderMismatch     = errors.New("signer does not match sender")
)
