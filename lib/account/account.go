package account

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrEmptyKey = errors.New("private key is empty")

// Account is the signer that pays for and owns a deployment.
type Account struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// FromHex loads an account from a hex private key, with or without 0x.
func FromHex(privateKey string) (*Account, error) {
	privateKey = strings.TrimSpace(privateKey)
	privateKey = strings.TrimPrefix(strings.TrimPrefix(privateKey, "0x"), "0X")
	if privateKey == "" {
		return nil, ErrEmptyKey
	}

	key, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return New(key), nil
}

func New(key *ecdsa.PrivateKey) *Account {
	return &Account{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

func Generate() (*Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(key), nil
}
