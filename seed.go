package keytree

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// MinSeedBytes is the smallest allowed seed length, 128 bits.
	MinSeedBytes = 16

	// MaxSeedBytes is the largest allowed seed length, 512 bits. The
	// bound is inclusive: a 64-byte seed is valid, a 65-byte seed is not.
	MaxSeedBytes = 64

	// RecommendedSeedLen is the seed length in bytes to use when there is
	// no reason to pick another, 256 bits.
	RecommendedSeedLen = 32
)

var (
	// ErrSeedTooShort is returned when a seed carries fewer than
	// MinSeedBytes bytes of entropy.
	ErrSeedTooShort = fmt.Errorf("seed must carry at least %d bits of "+
		"entropy", MinSeedBytes*8)

	// ErrSeedTooLong is returned when a seed carries more than
	// MaxSeedBytes bytes of entropy.
	ErrSeedTooLong = fmt.Errorf("seed must carry at most %d bits of "+
		"entropy", MaxSeedBytes*8)

	// ErrUnusableSeed is returned when the master key material hashed out
	// of a seed falls outside the valid private key range. The caller
	// must select a new seed; this failure is not recoverable by this
	// package and occurs with probability below 2^-127.
	ErrUnusableSeed = errors.New("unusable seed")
)

// masterHMACKey is the PRF key that turns a seed into master key material.
// The value is fixed by BIP-32 and shared by every conforming
// implementation.
var masterHMACKey = []byte("Bitcoin seed")

// GenerateSeed returns a cryptographically secure random seed of the given
// length in bytes, suitable for NewMaster. Lengths outside the
// [MinSeedBytes, MaxSeedBytes] range are rejected before any randomness is
// drawn.
func GenerateSeed(length uint8) ([]byte, error) {
	if length < MinSeedBytes {
		return nil, ErrSeedTooShort
	}
	if length > MaxSeedBytes {
		return nil, ErrSeedTooLong
	}

	seed := make([]byte, length)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	return seed, nil
}

// NewMaster derives the root node of a key tree from a seed for the given
// network. The seed is hashed with HMAC-SHA512 under the fixed master key;
// the left half of the digest becomes the root private scalar and the right
// half becomes the root chain code.
//
// The same seed and network always produce a byte-identical root. Seeds
// whose digest falls outside the valid private key range fail with
// ErrUnusableSeed and must be discarded by the caller.
func NewMaster(seed []byte, net *chaincfg.Params) (*PrivateNode, error) {
	if len(seed) < MinSeedBytes {
		return nil, ErrSeedTooShort
	}
	if len(seed) > MaxSeedBytes {
		return nil, ErrSeedTooLong
	}
	if net == nil {
		return nil, ErrUnknownNetwork
	}

	// I = HMAC-SHA512(key="Bitcoin seed", data=seed).
	hmac512 := hmac.New(sha512.New, masterHMACKey)
	hmac512.Write(seed)
	lr := hmac512.Sum(nil)

	// Left half becomes the private scalar, right half the chain code.
	il := lr[:len(lr)/2]
	chainCode := lr[len(lr)/2:]

	// The scalar must be in [1, N-1] for the seed to be usable.
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(il); overflow || scalar.IsZero() {
		return nil, ErrUnusableSeed
	}

	privKey := btcec.PrivateKey{Key: scalar}
	return NewPrivateNode(&privKey, chainCode, 0, 0, 0, net)
}
