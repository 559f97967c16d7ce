package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calehh/qf-app/tx"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var ErrKeyFile = errors.New("invalid key file")

// Key is a secp256k1 account key kept as a hex file on disk.
type Key struct {
	privateKey *ecdsa.PrivateKey
}

func NewKey(priv *ecdsa.PrivateKey) *Key {
	return &Key{privateKey: priv}
}

func LoadKeyFile(keyFilePath string) (*Key, error) {
	dat, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(dat)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w %v: %v", ErrKeyFile, keyFilePath, err)
	}
	priv, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %v: %v", ErrKeyFile, keyFilePath, err)
	}
	return NewKey(priv), nil
}

// GenerateKeyFile writes a fresh key to keyFilePath. An existing file is
// never overwritten.
func GenerateKeyFile(keyFilePath string) (*Key, error) {
	if _, err := os.Stat(keyFilePath); err == nil {
		return nil, fmt.Errorf("%w: %v already exists", ErrKeyFile, keyFilePath)
	}
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(filepath.Dir(keyFilePath), 0o700); err != nil {
		return nil, err
	}
	key := hex.EncodeToString(ethcrypto.FromECDSA(priv))
	if err = os.WriteFile(keyFilePath, []byte(key), 0o600); err != nil {
		return nil, err
	}
	return NewKey(priv), nil
}

func (k *Key) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.privateKey.PublicKey)
}

func (k *Key) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.privateKey.PublicKey)
}

// SignTx sets the sender of btx to this key and signs it for chainId.
func (k *Key) SignTx(btx *tx.QFTx, chainId string) error {
	btx.Sender = k.Address()
	return btx.Sign(k.privateKey, chainId)
}
