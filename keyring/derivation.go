package keyring

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// BIP0043Purpose is the purpose value used on the first hardened
	// level of the tree governed by this package. Every key handed out by
	// a KeyRing lives under a derivation path of the form:
	//
	//   m/1019'/coinType'/keyFamily'/0/index
	//
	// Pinning a dedicated purpose keeps these keys disjoint from any
	// BIP44, BIP49 or BIP84 wallet built from the same seed.
	BIP0043Purpose = 1019
)

var (
	// MaxKeyRangeScan is the maximum number of leaf keys we'll scan over
	// when a caller presents a descriptor that carries a public key but
	// no usable locator.
	MaxKeyRangeScan = 250

	// ErrCannotDerivePrivKey is returned when DerivePrivKey cannot map a
	// key descriptor back to a private key within MaxKeyRangeScan
	// attempts.
	ErrCannotDerivePrivKey = fmt.Errorf("unable to derive private key")
)

// KeyFamily names a class of keys that share a single purpose. Each family
// occupies its own hardened subtree below the coin type, so the keys of one
// family can be enumerated, handed out or rotated without disturbing any
// other family. The numeric value of a family is burned into every
// derivation path built from it, meaning the assignment of a constant to a
// value can never change once released. New families are appended to the end
// of the known set.
type KeyFamily uint32

const (
	// KeyFamilyIdentity are long lived keys that act as the stable
	// identity of the key tree owner. They're the keys advertised to
	// remote parties and are expected to rotate rarely, if ever.
	KeyFamilyIdentity KeyFamily = 0

	// KeyFamilyExternal are keys handed out to the outside world, one per
	// invoice, address or request. Their public halves are expected to
	// leave the process.
	KeyFamilyExternal KeyFamily = 1

	// KeyFamilyInternal are keys that never leave the process. They back
	// change outputs and other internal bookkeeping that should stay
	// unlinkable to the external family.
	KeyFamilyInternal KeyFamily = 2

	// KeyFamilyECDH are keys reserved for deriving shared secrets with
	// remote public keys. Keeping them in their own family means a
	// compromised session secret never points back at signing keys.
	KeyFamilyECDH KeyFamily = 3

	// KeyFamilyEncryption are keys used to encrypt data at rest, such as
	// exported state snapshots. Only the symmetric keys hashed out of
	// this family ever touch the data, the EC keys themselves stay in
	// the tree.
	KeyFamilyEncryption KeyFamily = 4
)

// KnownKeyFamilies is the set of all families defined by the current
// derivation schema, in ascending order of their numeric value.
var KnownKeyFamilies = []KeyFamily{
	KeyFamilyIdentity,
	KeyFamilyExternal,
	KeyFamilyInternal,
	KeyFamilyECDH,
	KeyFamilyEncryption,
}

// String returns a human readable string describing the target KeyFamily.
func (k KeyFamily) String() string {
	switch k {
	case KeyFamilyIdentity:
		return "identity"
	case KeyFamilyExternal:
		return "external"
	case KeyFamilyInternal:
		return "internal"
	case KeyFamilyECDH:
		return "ecdh"
	case KeyFamilyEncryption:
		return "encryption"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(k))
	}
}

// KeyLocator is a two tuple sufficient to locate any key below the coin type
// node. The family selects the hardened subtree, the index selects the leaf
// on its external branch.
type KeyLocator struct {
	// Family is the family of the key being identified.
	Family KeyFamily

	// Index is the precise index of the key being identified.
	Index uint32
}

// IsEmpty returns true if the locator carries neither a family nor an index.
// A zero locator typically shows up in descriptors built around a bare
// public key whose derivation details aren't known to the caller.
func (k KeyLocator) IsEmpty() bool {
	return k.Family == 0 && k.Index == 0
}

// KeyDescriptor wraps a KeyLocator and optionally the public key it resolves
// to. A descriptor is usable as long as one of the two halves is populated:
// a non-empty locator pins the key directly, while a bare public key can
// still be mapped back to its private key by scanning the key range.
type KeyDescriptor struct {
	// KeyLocator is the internal KeyLocator of the descriptor.
	KeyLocator

	// PubKey is an optional public key that fully describes a target key.
	// If this is nil, the KeyLocator MUST NOT be empty.
	PubKey *btcec.PublicKey
}

// KeyRing is the primary interface used to derive public keys from a key
// tree. Implementations hand out descriptors rather than raw keys so callers
// can persist the compact locator and re-derive on demand.
type KeyRing interface {
	// DeriveNextKey attempts to derive the *next* key within the given
	// key family. This method should return the next external child
	// within this branch.
	DeriveNextKey(keyFam KeyFamily) (KeyDescriptor, error)

	// DeriveKey attempts to derive an arbitrary key specified by the
	// passed KeyLocator. This may be used in several recovery scenarios,
	// or when manually rotating something like our default identity key.
	DeriveKey(keyLoc KeyLocator) (KeyDescriptor, error)
}

// SecretKeyRing is a ring capable of resolving descriptors all the way down
// to private keys. Anything holding a SecretKeyRing holds the spending power
// of the whole tree, so implementations should be handed out sparingly.
type SecretKeyRing interface {
	KeyRing

	ECDHRing

	// DerivePrivKey attempts to derive the private key that corresponds
	// to the passed key descriptor. If the descriptor carries only a
	// public key, implementations scan up to MaxKeyRangeScan leaves per
	// family looking for a match and return ErrCannotDerivePrivKey when
	// none is found.
	DerivePrivKey(keyDesc KeyDescriptor) (*btcec.PrivateKey, error)
}

// ECDHRing is an interface for deriving shared secrets without ever exposing
// the private key involved.
type ECDHRing interface {
	// ECDH performs a scalar multiplication (ECDH-like operation) between
	// the key described by the descriptor and the remote public key. The
	// returned shared secret is the SHA256 hash of the compressed shared
	// point:
	//
	//   sha256(compressed(k * P))
	//
	// where k is the described private key and P the remote public key.
	ECDH(keyDesc KeyDescriptor, pubKey *btcec.PublicKey) ([32]byte, error)
}

// SingleKeyECDH is an abstraction interface that hides the implementation of
// ECDH operations against a single, fixed key.
type SingleKeyECDH interface {
	// PubKey returns the public key of the fixed key.
	PubKey() *btcec.PublicKey

	// ECDH derives a shared secret between the fixed key and the remote
	// public key, with the same semantics as ECDHRing.ECDH.
	ECDH(pubKey *btcec.PublicKey) ([32]byte, error)
}

const (
	// CoinTypeBitcoin is the BIP44 coin type derived below for mainnet
	// keys.
	CoinTypeBitcoin uint32 = 0

	// CoinTypeTestnet is the BIP44 coin type shared by all test networks,
	// testnet3 and regtest and simnet alike.
	CoinTypeTestnet uint32 = 1
)

// CoinTypeForNetwork maps a chain description to the coin type used on the
// second hardened level. Every network that isn't mainnet shares the testnet
// coin type.
func CoinTypeForNetwork(net *chaincfg.Params) uint32 {
	if net.Net == chaincfg.MainNetParams.Net {
		return CoinTypeBitcoin
	}
	return CoinTypeTestnet
}
