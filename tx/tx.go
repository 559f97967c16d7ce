package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/calehh/qf-app/qf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// QFTx is the signed envelope of every transaction. Sig is a 65 byte
// secp256k1 signature over SigHash; the signer must be Sender.
type QFTx struct {
	Version uint8          `json:"version"`
	Type    QFTxType       `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type SignupTx struct {
	Amount *uint256.Int `json:"amount"`
}

type ProposeTx struct {
	Recipient   common.Address `json:"recipient"`
	Description string         `json:"description"`
}

type VoteTx struct {
	Proposal  uint64         `json:"proposal"`
	Support   uint8          `json:"support"`
	Weight    *uint256.Int   `json:"weight"`
	Recipient common.Address `json:"recipient"`
}

type CancelTx struct {
	Proposal uint64 `json:"proposal"`
}

type FinalizeTx struct{}

type QueueTx struct {
	Proposal uint64 `json:"proposal"`
}

// RedeemTx burns Owner's shares. A zero Owner or Receiver means the sender.
type RedeemTx struct {
	Shares   *uint256.Int   `json:"shares"`
	Receiver common.Address `json:"receiver"`
	Owner    common.Address `json:"owner"`
}

// TransferSharesTx moves shares to To. A non-zero From other than the sender
// spends the sender's allowance.
type TransferSharesTx struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type ApproveTx struct {
	Spender common.Address `json:"spender"`
	Amount  *uint256.Int   `json:"amount"`
}

type SetAlphaTx struct {
	Alpha qf.Alpha `json:"alpha"`
}

type FundPoolTx struct {
	Amount *uint256.Int `json:"amount"`
}

type GrantProposerTx struct {
	Account common.Address `json:"account"`
	Revoke  bool           `json:"revoke"`
}

type SweepTx struct {
	To common.Address `json:"to"`
}

// SendTx moves base asset between accounts.
type SendTx struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type qfTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    QFTxType       `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      Tx             `json:"tx"`
	Sig     []byte         `json:"sig"`
}

func NewQFTx(tp QFTxType, nonce uint64, sender common.Address, payload any) *QFTx {
	return &QFTx{
		Version: QFTxVersion0,
		Type:    tp,
		Nonce:   nonce,
		Sender:  sender,
		Tx:      payload,
	}
}

// SigData is the encoding that gets signed: the tx with the chain id in place
// of the signature.
func (tx *QFTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *QFTx) SigHash(chainId string) (h common.Hash, err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	h = crypto.Keccak256Hash(dat)
	return
}

func (tx *QFTx) Sign(priv *ecdsa.PrivateKey, chainId string) error {
	h, err := tx.SigHash(chainId)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(h[:], priv)
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// Signer recovers the address that produced Sig and checks it is Sender.
func (tx *QFTx) Signer(chainId string) (addr common.Address, err error) {
	if len(tx.Sig) != crypto.SignatureLength {
		return addr, ErrTxSigInvalid
	}
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(h[:], tx.Sig)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrTxSigInvalid, err)
	}
	addr = crypto.PubkeyToAddress(*pub)
	if addr != tx.Sender {
		return addr, ErrTxSenderMismatch
	}
	return
}

func parseQFTxType(dat []byte) QFTxType {
	var tx struct {
		Type QFTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return QFTxTypeUnknown
	}
	return tx.Type
}

func unmarshalQFTx[Tx any](dat []byte) (btx *QFTx, err error) {
	var txt qfTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != QFTxVersion0 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(QFTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalQFTx(dat []byte) (btx *QFTx, err error) {
	tp := parseQFTxType(dat)
	switch tp {
	case QFTxTypeSignup:
		return unmarshalQFTx[SignupTx](dat)
	case QFTxTypePropose:
		return unmarshalQFTx[ProposeTx](dat)
	case QFTxTypeVote:
		return unmarshalQFTx[VoteTx](dat)
	case QFTxTypeCancel:
		return unmarshalQFTx[CancelTx](dat)
	case QFTxTypeFinalize:
		return unmarshalQFTx[FinalizeTx](dat)
	case QFTxTypeQueue:
		return unmarshalQFTx[QueueTx](dat)
	case QFTxTypeRedeem:
		return unmarshalQFTx[RedeemTx](dat)
	case QFTxTypeTransferShares:
		return unmarshalQFTx[TransferSharesTx](dat)
	case QFTxTypeApprove:
		return unmarshalQFTx[ApproveTx](dat)
	case QFTxTypeSetAlpha:
		return unmarshalQFTx[SetAlphaTx](dat)
	case QFTxTypeFundPool:
		return unmarshalQFTx[FundPoolTx](dat)
	case QFTxTypeGrantProposer:
		return unmarshalQFTx[GrantProposerTx](dat)
	case QFTxTypeSweep:
		return unmarshalQFTx[SweepTx](dat)
	case QFTxTypeSend:
		return unmarshalQFTx[SendTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalQFTx(btx *QFTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
