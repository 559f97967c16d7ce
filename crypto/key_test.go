package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calehh/qf-app/tx"
	"github.com/stretchr/testify/require"
)

func TestKeyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "owner_priv_key")
	key, err := GenerateKeyFile(path)
	require.NoError(t, err)

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	require.Equal(t, key.Address(), loaded.Address())
	require.Len(t, loaded.PublicKey(), 33)

	_, err = GenerateKeyFile(path)
	require.ErrorIs(t, err, ErrKeyFile)
}

func TestLoadKeyFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("not hex"), 0o600))
	_, err := LoadKeyFile(path)
	require.ErrorIs(t, err, ErrKeyFile)
}

func TestSignTx(t *testing.T) {
	key, err := GenerateKeyFile(filepath.Join(t.TempDir(), "key"))
	require.NoError(t, err)
	btx := tx.NewQFTx(tx.QFTxTypeFinalize, 3, key.Address(), &tx.FinalizeTx{})
	btx.Sender[0] ^= 0xff
	require.NoError(t, key.SignTx(btx, "qf-test"))
	signer, err := btx.Signer("qf-test")
	require.NoError(t, err)
	require.Equal(t, key.Address(), signer)
}
