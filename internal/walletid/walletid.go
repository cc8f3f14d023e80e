// Package walletid derives deterministic wallet identifiers from BIP-39
// mnemonics, grounded on an HD wallet's ed25519 key derivation: a BIP-39
// seed feeding an ed25519 key pair, addressed via a SHA-256/RIPEMD-160
// scheme. The ledger core itself treats core.WalletID as an opaque
// string; this package is the one recommended (not required) way to
// produce one, kept outside core so the core package never imports
// key-management code. No implicit RNG: every seed here is
// caller-supplied or explicitly generated via GenerateMnemonic.
package walletid

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ripemd160"

	core "ledgerkernel/core"
)

// GenerateMnemonic returns a fresh BIP-39 mnemonic using entropyBits of
// crypto/rand entropy (128 or 256). Callers must record the mnemonic if
// the derived wallet id needs to be reproduced later.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != 128 && entropyBits != 256 {
		return "", fmt.Errorf("walletid: unsupported entropy size %d", entropyBits)
	}
	entropy := make([]byte, entropyBits/8)
	if _, err := crand.Read(entropy); err != nil {
		return "", fmt.Errorf("walletid: entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("walletid: mnemonic: %w", err)
	}
	return mnemonic, nil
}

// DeriveWalletID turns a BIP-39 mnemonic and optional passphrase into a
// core.WalletID: an ed25519 key pair is seeded from
// bip39.NewSeed(mnemonic, passphrase), and the address scheme is
// SHA-256(pub) -> RIPEMD-160 -> hex. The same (mnemonic, passphrase) pair
// always yields the same WalletID.
func DeriveWalletID(mnemonic, passphrase string) (core.WalletID, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", fmt.Errorf("walletid: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)
	return pubKeyToWalletID(pub), nil
}

func pubKeyToWalletID(pub ed25519.PublicKey) core.WalletID {
	sha := sha256.Sum256(pub)
	r := ripemd160.New()
	r.Write(sha[:])
	return core.WalletID(hex.EncodeToString(r.Sum(nil)))
}
