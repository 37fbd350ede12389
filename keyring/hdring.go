package keyring

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/keytree"
)

// HDKeyRing is an in-memory implementation of the SecretKeyRing interface
// backed by an extended key root. Every key it hands out sits on a path of
// the form
//
//	m/1019'/coinType'/keyFamily'/0/index
//
// so the entire ring can be rebuilt from nothing but the original seed. The
// ring keeps no state beyond the coin type node, derived branches and the
// next free index per family, both of which it re-derives and re-learns on
// demand.
type HDKeyRing struct {
	coinTypeNode *keytree.PrivateNode

	mu sync.Mutex

	// familyNodes caches the external branch node of each family that has
	// been touched so far.
	familyNodes map[KeyFamily]*keytree.PrivateNode

	// nextIndex tracks the next unused leaf index per family.
	nextIndex map[KeyFamily]uint32
}

// A compile time check to ensure HDKeyRing hands out secrets and shared
// secrets alike.
var _ SecretKeyRing = (*HDKeyRing)(nil)
var _ ECDHRing = (*HDKeyRing)(nil)

// NewHDKeyRing creates a key ring rooted at the given master node. The
// purpose and coin type levels are derived eagerly so an unusable root is
// rejected here rather than on first use. The root itself isn't retained.
func NewHDKeyRing(root *keytree.PrivateNode,
	coinType uint32) (*HDKeyRing, error) {

	purposeNode, err := root.DeriveHardened(BIP0043Purpose)
	if err != nil {
		return nil, err
	}

	coinTypeNode, err := purposeNode.DeriveHardened(coinType)
	if err != nil {
		return nil, err
	}

	return &HDKeyRing{
		coinTypeNode: coinTypeNode,
		familyNodes:  make(map[KeyFamily]*keytree.PrivateNode),
		nextIndex:    make(map[KeyFamily]uint32),
	}, nil
}

// familyBranch returns the external branch node of the given family, deriving
// and caching it on first use.
//
// NOTE: The mutex MUST be held when this is called.
func (h *HDKeyRing) familyBranch(keyFam KeyFamily) (*keytree.PrivateNode,
	error) {

	if branch, ok := h.familyNodes[keyFam]; ok {
		return branch, nil
	}

	famNode, err := h.coinTypeNode.DeriveHardened(uint32(keyFam))
	if err != nil {
		return nil, err
	}

	// Branch zero mirrors the external branch of BIP44 style wallets. The
	// internal branch stays unused so locators fit in a two tuple.
	branch, err := famNode.Derive(0)
	if err != nil {
		return nil, err
	}

	h.familyNodes[keyFam] = branch
	return branch, nil
}

// DeriveNextKey hands out the next unused key of the given family. Indexes
// are assigned in order starting at zero, and an index skipped over because
// its child was unusable stays skipped.
//
// NOTE: This is part of the KeyRing interface.
func (h *HDKeyRing) DeriveNextKey(keyFam KeyFamily) (KeyDescriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	branch, err := h.familyBranch(keyFam)
	if err != nil {
		return KeyDescriptor{}, err
	}

	child, err := branch.Derive(h.nextIndex[keyFam])
	if err != nil {
		return KeyDescriptor{}, err
	}

	// Derivation may have moved past an unusable index, so the counter
	// continues from the index that was actually used.
	h.nextIndex[keyFam] = child.Index() + 1

	keyDesc := KeyDescriptor{
		KeyLocator: KeyLocator{
			Family: keyFam,
			Index:  child.Index(),
		},
		PubKey: child.PubKey(),
	}

	log.Debugf("Derived next key: family=%v index=%v",
		keyFam, keyDesc.Index)
	log.Tracef("Next key descriptor: %v",
		newLogClosure(func() string {
			return spew.Sdump(keyDesc)
		}))

	return keyDesc, nil
}

// DeriveKey derives the key described by the passed locator. The returned
// descriptor carries the index that was actually used, which matches the
// locator except when the addressed child was unusable.
//
// NOTE: This is part of the KeyRing interface.
func (h *HDKeyRing) DeriveKey(keyLoc KeyLocator) (KeyDescriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	branch, err := h.familyBranch(keyLoc.Family)
	if err != nil {
		return KeyDescriptor{}, err
	}

	child, err := branch.Derive(keyLoc.Index)
	if err != nil {
		return KeyDescriptor{}, err
	}

	keyDesc := KeyDescriptor{
		KeyLocator: KeyLocator{
			Family: keyLoc.Family,
			Index:  child.Index(),
		},
		PubKey: child.PubKey(),
	}

	log.Tracef("Derived key at locator: %v",
		newLogClosure(func() string {
			return spew.Sdump(keyDesc)
		}))

	return keyDesc, nil
}

// DerivePrivKey resolves a key descriptor down to its private key. If the
// descriptor carries a public key, the family's key range is scanned in
// order until the key is found, bounded by MaxKeyRangeScan.
//
// NOTE: This is part of the SecretKeyRing interface.
func (h *HDKeyRing) DerivePrivKey(keyDesc KeyDescriptor) (*btcec.PrivateKey,
	error) {

	h.mu.Lock()
	defer h.mu.Unlock()

	branch, err := h.familyBranch(keyDesc.Family)
	if err != nil {
		return nil, err
	}

	// Without a public key to match against, the locator names the exact
	// leaf.
	if keyDesc.PubKey == nil {
		child, err := branch.Derive(keyDesc.Index)
		if err != nil {
			return nil, err
		}

		return child.PrivKey(), nil
	}

	for index := uint32(0); index < uint32(MaxKeyRangeScan); index++ {
		child, err := branch.Derive(index)
		if err != nil {
			return nil, err
		}

		if child.PubKey().IsEqual(keyDesc.PubKey) {
			return child.PrivKey(), nil
		}
	}

	return nil, ErrCannotDerivePrivKey
}

// ECDH derives a shared secret between the key described by the descriptor
// and the remote public key. The secret is the SHA256 hash of the compressed
// shared point.
//
// NOTE: This is part of the ECDHRing interface.
func (h *HDKeyRing) ECDH(keyDesc KeyDescriptor,
	pubKey *btcec.PublicKey) ([32]byte, error) {

	privKey, err := h.DerivePrivKey(keyDesc)
	if err != nil {
		return [32]byte{}, err
	}

	ecdh := PrivKeyECDH{PrivKey: privKey}
	return ecdh.ECDH(pubKey)
}
