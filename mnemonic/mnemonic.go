// Package mnemonic bridges BIP39 phrases and the binary seeds that root
// hierarchical deterministic key trees. It wraps the reference wordlist
// implementation so callers can go from a phrase plus passphrase straight to
// a usable master node.
package mnemonic

import (
	"github.com/btcsuite/btcd/chaincfg"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/lightningnetwork/keytree"
)

const (
	// DefaultEntropyBits is the entropy size used when callers don't ask
	// for a specific strength. It yields a 24 word phrase.
	DefaultEntropyBits = 256
)

// NewMnemonic generates a fresh random phrase encoding entropyBits bits of
// entropy. The bit count must be a multiple of 32 between 128 and 256, which
// maps to phrases of 12 up to 24 words.
func NewMnemonic(entropyBits int) (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// Seed stretches a phrase and an optional passphrase into the 64 byte seed
// that roots a key tree. The phrase's checksum is verified, so a mistyped or
// truncated phrase is rejected instead of silently producing a different
// tree.
func Seed(phrase, passphrase string) ([]byte, error) {
	return bip39.NewSeedWithErrorChecking(phrase, passphrase)
}

// NewMaster derives the master node of the tree rooted by the given phrase
// and passphrase on the target network.
func NewMaster(phrase, passphrase string,
	net *chaincfg.Params) (*keytree.PrivateNode, error) {

	seed, err := Seed(phrase, passphrase)
	if err != nil {
		return nil, err
	}

	return keytree.NewMaster(seed, net)
}
