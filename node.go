// Package keytree implements BIP-32 hierarchical deterministic key trees
// over the secp256k1 curve. Nodes in a tree are immutable values: a private
// node carries both the private scalar and its public point, a public node
// carries only the point, and either flavor can derive child nodes without
// mutating the parent. Network parameters are plain values threaded through
// construction and decoding, so callers can target any parameter set without
// touching process-wide state.
package keytree

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// ChainCodeLen is the length in bytes of the chain code carried by
	// every node of a key tree.
	ChainCodeLen = 32

	// fingerprintLen is the length in bytes of a key fingerprint, the
	// leading bytes of the key identifier.
	fingerprintLen = 4
)

var (
	// ErrInvalidChainCodeLen is returned when constructing a node with a
	// chain code that isn't exactly ChainCodeLen bytes.
	ErrInvalidChainCodeLen = errors.New("chain code must be exactly 32 " +
		"bytes")

	// ErrUnknownNetwork is returned when constructing a node without a
	// set of network parameters to resolve serialization version bytes
	// against.
	ErrUnknownNetwork = errors.New("unknown or missing network parameters")

	// ErrInvalidKeyData is returned when the key material handed to a
	// constructor or found in a decoded extended key is malformed: a nil
	// key, a private scalar outside [1, N-1], or bytes that aren't a
	// valid compressed curve point.
	ErrInvalidKeyData = errors.New("invalid key material")
)

// Node is the read-only surface shared by both flavors of key tree nodes. A
// Node always exposes a public key; whether the backing value also knows the
// corresponding private scalar is captured by the concrete type, either
// PrivateNode or PublicNode.
type Node interface {
	// PubKey returns the node's public key. The returned key is shared,
	// not copied, and must not be mutated.
	PubKey() *btcec.PublicKey

	// ChainCode returns a copy of the 32-byte chain code that children of
	// this node are derived under.
	ChainCode() []byte

	// Depth returns the number of derivation steps between the tree root
	// and this node. The root itself is at depth zero.
	Depth() uint8

	// Index returns the child number this node was derived at, including
	// the hardened marker bit when set. Root nodes report zero.
	Index() uint32

	// ParentFingerprint returns the big-endian interpretation of the
	// first four bytes of the parent's key identifier, or zero for roots.
	ParentFingerprint() uint32

	// Network returns the network parameters the node serializes under.
	Network() *chaincfg.Params

	// Identifier returns the HASH160 of the compressed public key.
	Identifier() []byte

	// Fingerprint returns the first four bytes of Identifier.
	Fingerprint() []byte

	// Address returns the pay-to-pubkey-hash address of the node's public
	// key on the node's network.
	Address() (*btcutil.AddressPubKeyHash, error)

	// String returns the base58-encoded extended key for the node. The
	// private serialization is used when the node carries a private key.
	String() string
}

// A compile time check to ensure both node flavors implement the Node
// interface.
var _ Node = (*PublicNode)(nil)
var _ Node = (*PrivateNode)(nil)

// PublicNode is a key tree node that only knows its public key. It can
// derive non-hardened children and serialize to the public extended key
// form, but it can never produce private key material.
//
// PublicNode values are immutable after construction and therefore safe for
// concurrent use.
type PublicNode struct {
	pubKey    *btcec.PublicKey
	chainCode []byte
	depth     uint8
	parentFP  uint32
	index     uint32
	net       *chaincfg.Params
}

// PrivateNode is a key tree node in possession of its private key. It embeds
// the public view of the same node, so every read-only accessor of
// PublicNode is available on a PrivateNode as well, and Neuter is a plain
// copy of the embedded value.
//
// PrivateNode values are immutable after construction and therefore safe for
// concurrent use.
type PrivateNode struct {
	PublicNode

	privKey *btcec.PrivateKey
}

// NewPublicNode assembles a public-only node from its parts. The chain code
// must be exactly ChainCodeLen bytes and the network parameters must be
// non-nil, otherwise construction fails before any node is observable.
func NewPublicNode(pubKey *btcec.PublicKey, chainCode []byte, depth uint8,
	parentFP uint32, index uint32, net *chaincfg.Params) (*PublicNode,
	error) {

	if pubKey == nil {
		return nil, ErrInvalidKeyData
	}
	if len(chainCode) != ChainCodeLen {
		return nil, ErrInvalidChainCodeLen
	}
	if net == nil {
		return nil, ErrUnknownNetwork
	}

	code := make([]byte, ChainCodeLen)
	copy(code, chainCode)

	return &PublicNode{
		pubKey:    pubKey,
		chainCode: code,
		depth:     depth,
		parentFP:  parentFP,
		index:     index,
		net:       net,
	}, nil
}

// NewPrivateNode assembles a private node from its parts. The public point
// is computed from the private scalar up front, so the invariant that the
// point is always the scalar's curve multiple holds by construction. The
// same chain code and network validation as NewPublicNode applies.
func NewPrivateNode(privKey *btcec.PrivateKey, chainCode []byte, depth uint8,
	parentFP uint32, index uint32, net *chaincfg.Params) (*PrivateNode,
	error) {

	if privKey == nil || privKey.Key.IsZero() {
		return nil, ErrInvalidKeyData
	}

	pub, err := NewPublicNode(
		privKey.PubKey(), chainCode, depth, parentFP, index, net,
	)
	if err != nil {
		return nil, err
	}

	return &PrivateNode{
		PublicNode: *pub,
		privKey:    privKey,
	}, nil
}

// PubKey returns the node's public key.
func (k *PublicNode) PubKey() *btcec.PublicKey {
	return k.pubKey
}

// ChainCode returns a copy of the node's chain code.
func (k *PublicNode) ChainCode() []byte {
	code := make([]byte, ChainCodeLen)
	copy(code, k.chainCode)
	return code
}

// Depth returns the node's distance from the tree root.
func (k *PublicNode) Depth() uint8 {
	return k.depth
}

// Index returns the child number the node was derived at, hardened marker
// included.
func (k *PublicNode) Index() uint32 {
	return k.index
}

// ParentFingerprint returns the fingerprint of the node's parent as a
// big-endian integer.
func (k *PublicNode) ParentFingerprint() uint32 {
	return k.parentFP
}

// Network returns the network parameters the node was constructed with.
func (k *PublicNode) Network() *chaincfg.Params {
	return k.net
}

// Identifier returns the RIPEMD160(SHA256(...)) hash of the compressed
// public key, the standard identifier for a node.
func (k *PublicNode) Identifier() []byte {
	return btcutil.Hash160(k.pubKey.SerializeCompressed())
}

// Fingerprint returns the leading four bytes of the node's identifier.
func (k *PublicNode) Fingerprint() []byte {
	return k.Identifier()[:fingerprintLen]
}

// fingerprint returns the node's fingerprint as a big-endian integer, the
// form recorded in children derived from this node.
func (k *PublicNode) fingerprint() uint32 {
	return binary.BigEndian.Uint32(k.Fingerprint())
}

// Address returns the pay-to-pubkey-hash address of the node's public key on
// the node's network.
func (k *PublicNode) Address() (*btcutil.AddressPubKeyHash, error) {
	return btcutil.NewAddressPubKeyHash(k.Identifier(), k.net)
}

// Neuter returns the receiver unchanged, as a public node is already the
// neutered view of itself. It exists so both node flavors expose the same
// method set.
func (k *PublicNode) Neuter() *PublicNode {
	return k
}

// PrivKey returns the node's private key.
func (k *PrivateNode) PrivKey() *btcec.PrivateKey {
	return k.privKey
}

// WIF returns the node's private key in wallet import format, using the
// compressed public key form to match the node's serialization.
func (k *PrivateNode) WIF() (*btcutil.WIF, error) {
	return btcutil.NewWIF(k.privKey, k.net, true)
}

// Neuter strips the private key from the node, returning the public-only
// view. The receiver is unaffected; the returned node shares its chain code
// and public key with the receiver, both of which are immutable.
func (k *PrivateNode) Neuter() *PublicNode {
	pub := k.PublicNode
	return &pub
}

// Neuter returns the public-only view of any node. Public nodes are returned
// as-is, private nodes are stripped of their key material. An error is only
// returned for Node implementations outside this package, which have no
// private part to strip in a way this package can see.
func Neuter(n Node) (*PublicNode, error) {
	switch node := n.(type) {
	case *PrivateNode:
		return node.Neuter(), nil

	case *PublicNode:
		return node, nil

	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}
