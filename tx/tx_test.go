package tx

import (
	"testing"

	"github.com/calehh/qf-app/qf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(priv.PublicKey)

	vote := &VoteTx{
		Proposal:  3,
		Support:   1,
		Weight:    uint256.NewInt(20),
		Recipient: common.HexToAddress("0x21"),
	}
	btx := NewQFTx(QFTxTypeVote, 7, sender, vote)
	require.NoError(t, btx.Sign(priv, "qf-test"))

	dat, err := MarshalQFTx(btx)
	require.NoError(t, err)
	decoded, err := UnmarshalQFTx(dat)
	require.NoError(t, err)
	require.Equal(t, QFTxTypeVote, decoded.Type)
	require.Equal(t, uint64(7), decoded.Nonce)
	require.Equal(t, vote, decoded.Tx.(*VoteTx))

	signer, err := decoded.Signer("qf-test")
	require.NoError(t, err)
	require.Equal(t, sender, signer)

	// A signature is bound to the chain id.
	_, err = decoded.Signer("other-chain")
	require.Error(t, err)
}

func TestSignerRejectsForgedSender(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	btx := NewQFTx(QFTxTypeFinalize, 0, common.HexToAddress("0xa1"), &FinalizeTx{})
	require.NoError(t, btx.Sign(priv, "qf-test"))
	_, err = btx.Signer("qf-test")
	require.ErrorIs(t, err, ErrTxSenderMismatch)

	btx.Sig = btx.Sig[:10]
	_, err = btx.Signer("qf-test")
	require.ErrorIs(t, err, ErrTxSigInvalid)
}

func TestUnmarshalQFTx(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		tp      QFTxType
	}{
		{"signup", &SignupTx{Amount: uint256.NewInt(1000)}, QFTxTypeSignup},
		{"propose", &ProposeTx{Recipient: common.HexToAddress("0x21"), Description: "road"}, QFTxTypePropose},
		{"setAlpha", &SetAlphaTx{Alpha: qf.NewAlpha(2, 3)}, QFTxTypeSetAlpha},
		{"redeem", &RedeemTx{Shares: uint256.NewInt(9)}, QFTxTypeRedeem},
		{"grant", &GrantProposerTx{Account: common.HexToAddress("0xc1")}, QFTxTypeGrantProposer},
		{"send", &SendTx{To: common.HexToAddress("0x11"), Amount: uint256.NewInt(5)}, QFTxTypeSend},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dat, err := MarshalQFTx(NewQFTx(c.tp, 1, common.HexToAddress("0x11"), c.payload))
			require.NoError(t, err)
			btx, err := UnmarshalQFTx(dat)
			require.NoError(t, err)
			require.Equal(t, c.tp, btx.Type)
			require.Equal(t, c.payload, btx.Tx)
		})
	}

	_, err := UnmarshalQFTx([]byte(`{"type":99}`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)
	_, err = UnmarshalQFTx([]byte(`not json`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)
	_, err = UnmarshalQFTx([]byte(`{"version":3,"type":1}`))
	require.ErrorIs(t, err, ErrUnsupportedTxVersion)
}
