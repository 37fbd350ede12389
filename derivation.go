package keytree

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// HardenedKeyStart is the first hardened child index. Child numbers
	// at or above this value mix the parent's private key into the
	// derivation hash, making the child underivable from the parent's
	// public key alone.
	HardenedKeyStart uint32 = 0x80000000 // 2^31

	// maxNodeDepth is the deepest level a tree can reach, bounded by the
	// single depth byte in the extended key serialization.
	maxNodeDepth = 1<<8 - 1

	// derivationDataLen is the length of the data hashed to produce a
	// child: a 33-byte key representation followed by the big-endian
	// child index.
	derivationDataLen = 33 + 4

	// maxChildTrials caps how many consecutive child indices a single
	// Derive call will try before giving up. Each additional trial only
	// runs when the previous index hashed to an invalid scalar, which
	// happens with probability below 2^-127, so the cap exists to bound
	// the loop rather than to be reached.
	maxChildTrials = 3
)

var (
	// ErrDeriveHardFromPublic is returned when a hardened child is
	// requested from a public-only node. Hardened derivation needs the
	// parent's private key, so callers holding only a public node are
	// expected to branch on this error.
	ErrDeriveHardFromPublic = errors.New("cannot derive a hardened child " +
		"from a public node")

	// ErrDeriveBeyondMaxDepth is returned when deriving a child of a node
	// that is already 255 levels below the root, which could not be
	// serialized.
	ErrDeriveBeyondMaxDepth = errors.New("cannot derive a key with more " +
		"than 255 indices in its path")

	// ErrInvalidChild is returned when no child index at or shortly after
	// the requested one hashes to usable key material. Seeing this error
	// in practice is essentially impossible; it exists so the trial loop
	// has a hard bound.
	ErrInvalidChild = errors.New("no usable child key at or after the " +
		"given index")
)

// childKeyMaterial computes the HMAC-SHA512 digest for one child trial and
// splits it into the candidate scalar bytes and the child chain code.
func childKeyMaterial(chainCode []byte, data *[derivationDataLen]byte) (
	[]byte, []byte) {

	hmac512 := hmac.New(sha512.New, chainCode)
	hmac512.Write(data[:])
	lr := hmac512.Sum(nil)

	return lr[:len(lr)/2], lr[len(lr)/2:]
}

// nextTrialIndex returns the index to try after an invalid derivation
// candidate. The bumped index must stay on the same side of the hardened
// boundary as the original request and must not wrap around; crossing either
// line, or running out of trials, aborts the derivation with
// ErrInvalidChild.
func nextTrialIndex(i uint32, trial int) (uint32, error) {
	if trial+1 >= maxChildTrials {
		return 0, ErrInvalidChild
	}

	next := i + 1
	if next == 0 || (i < HardenedKeyStart) != (next < HardenedKeyStart) {
		return 0, ErrInvalidChild
	}

	return next, nil
}

// Derive produces the child of the node at the given index. Indices at or
// above HardenedKeyStart derive hardened children from the private key;
// lower indices derive normal children from the public key, so deriving a
// normal child here and neutering it yields the same node as deriving from
// the neutered parent directly.
//
// In the astronomically unlikely case that an index hashes to an invalid
// scalar, the next index is tried in its place, so the returned node's Index
// may exceed the requested one. The receiver is never modified.
func (k *PrivateNode) Derive(i uint32) (*PrivateNode, error) {
	if k.depth == maxNodeDepth {
		return nil, ErrDeriveBeyondMaxDepth
	}

	parentFP := k.fingerprint()

	childIndex := i
	for trial := 0; ; trial++ {
		// Assemble the hashed data for this trial: for hardened
		// children a zero pad byte plus the serialized private key,
		// for normal children the compressed public key, followed in
		// both cases by the big-endian child index.
		var data [derivationDataLen]byte
		if childIndex >= HardenedKeyStart {
			copy(data[1:], k.privKey.Serialize())
		} else {
			copy(data[:], k.pubKey.SerializeCompressed())
		}
		binary.BigEndian.PutUint32(data[33:], childIndex)

		il, chainCode := childKeyMaterial(k.chainCode, &data)

		// The candidate scalar must be in [1, N-1] and the child key
		// (candidate plus parent key, mod N) must be nonzero;
		// otherwise this index has no valid child and the next one is
		// tried.
		var ilScalar btcec.ModNScalar
		overflow := ilScalar.SetByteSlice(il)
		if !overflow && !ilScalar.IsZero() {
			childScalar := k.privKey.Key
			childScalar.Add(&ilScalar)

			if !childScalar.IsZero() {
				childKey := btcec.PrivateKey{Key: childScalar}
				return NewPrivateNode(
					&childKey, chainCode, k.depth+1,
					parentFP, childIndex, k.net,
				)
			}
		}

		next, err := nextTrialIndex(childIndex, trial)
		if err != nil {
			return nil, err
		}
		childIndex = next
	}
}

// DeriveHardened derives the hardened child at HardenedKeyStart+i, accepting
// the child number in its natural zero-based form. Indices that already
// carry the hardened bit are rejected.
func (k *PrivateNode) DeriveHardened(i uint32) (*PrivateNode, error) {
	if i >= HardenedKeyStart {
		return nil, fmt.Errorf("hardened child number %d exceeds %d",
			i, HardenedKeyStart-1)
	}

	return k.Derive(i + HardenedKeyStart)
}

// Derive produces the child of the public node at the given index. Only
// normal derivation is possible without the private key, so indices at or
// above HardenedKeyStart fail with ErrDeriveHardFromPublic. The child's
// public key is the curve sum of the candidate scalar's base point multiple
// and the parent key; the receiver is never modified.
func (k *PublicNode) Derive(i uint32) (*PublicNode, error) {
	if i >= HardenedKeyStart {
		return nil, ErrDeriveHardFromPublic
	}
	if k.depth == maxNodeDepth {
		return nil, ErrDeriveBeyondMaxDepth
	}

	parentFP := k.fingerprint()

	childIndex := i
	for trial := 0; ; trial++ {
		var data [derivationDataLen]byte
		copy(data[:], k.pubKey.SerializeCompressed())
		binary.BigEndian.PutUint32(data[33:], childIndex)

		il, chainCode := childKeyMaterial(k.chainCode, &data)

		// The candidate scalar must be in [1, N-1] and the resulting
		// point must not be the point at infinity; otherwise the next
		// index is tried.
		var ilScalar btcec.ModNScalar
		overflow := ilScalar.SetByteSlice(il)
		if !overflow && !ilScalar.IsZero() {
			var ilPoint, parentPoint, childPoint btcec.JacobianPoint
			btcec.ScalarBaseMultNonConst(&ilScalar, &ilPoint)
			k.pubKey.AsJacobian(&parentPoint)
			btcec.AddNonConst(&ilPoint, &parentPoint, &childPoint)

			if !childPoint.Z.IsZero() {
				childPoint.ToAffine()
				childPub := btcec.NewPublicKey(
					&childPoint.X, &childPoint.Y,
				)
				return NewPublicNode(
					childPub, chainCode, k.depth+1,
					parentFP, childIndex, k.net,
				)
			}
		}

		next, err := nextTrialIndex(childIndex, trial)
		if err != nil {
			return nil, err
		}
		childIndex = next
	}
}

// Derive dispatches child derivation over the Node interface, so callers
// holding the result of ParseExtendedKey can walk a tree without asserting
// the concrete type first. The hardened rules of the underlying node apply
// unchanged.
func Derive(n Node, i uint32) (Node, error) {
	switch node := n.(type) {
	case *PrivateNode:
		return node.Derive(i)

	case *PublicNode:
		return node.Derive(i)

	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}
