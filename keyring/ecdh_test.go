package keyring

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

var (
	ecdhPrivBytesA = bytes.Repeat([]byte{0x12}, 32)
	ecdhPrivBytesB = bytes.Repeat([]byte{0x34}, 32)

	// ecdhKnownSecret is sha256 of the compressed shared point between
	// the two keys above, computed independently of the code under test.
	ecdhKnownSecret = "8019cbd9fd2b18a46049aef9ff0aa5072a61c609" +
		"48c145a59f3e89023a4f6ee1"
)

// TestPrivKeyECDH asserts the shared secret computation against a fixed
// vector and checks that both parties arrive at the same secret.
func TestPrivKeyECDH(t *testing.T) {
	t.Parallel()

	privKeyA, pubKeyA := btcec.PrivKeyFromBytes(ecdhPrivBytesA)
	privKeyB, _ := btcec.PrivKeyFromBytes(ecdhPrivBytesB)

	alice := &PrivKeyECDH{PrivKey: privKeyA}
	bob := &PrivKeyECDH{PrivKey: privKeyB}

	require.True(t, alice.PubKey().IsEqual(pubKeyA))

	secretA, err := alice.ECDH(bob.PubKey())
	require.NoError(t, err)

	secretB, err := bob.ECDH(alice.PubKey())
	require.NoError(t, err)

	require.Equal(t, secretA, secretB)
	require.Equal(t, ecdhKnownSecret, hex.EncodeToString(secretA[:]))
}

// TestPubKeyECDH asserts that the pubkey only wrapper delegates the secret
// computation to the backing ring.
func TestPubKeyECDH(t *testing.T) {
	t.Parallel()

	ring := newTestHDKeyRing(t, CoinTypeBitcoin)

	keyDesc, err := ring.DeriveNextKey(KeyFamilyECDH)
	require.NoError(t, err)

	remoteKey, _ := btcec.PrivKeyFromBytes(ecdhPrivBytesB)

	wrapped := NewPubKeyECDH(keyDesc, ring)
	require.True(t, wrapped.PubKey().IsEqual(keyDesc.PubKey))

	wrappedSecret, err := wrapped.ECDH(remoteKey.PubKey())
	require.NoError(t, err)

	ringSecret, err := ring.ECDH(keyDesc, remoteKey.PubKey())
	require.NoError(t, err)

	require.Equal(t, ringSecret, wrappedSecret)
}

// TestHDKeyRingECDH computes the shared secret once through the ring and
// once from the remote party's point of view, which only line up if both
// sides multiply and serialize the same way.
func TestHDKeyRingECDH(t *testing.T) {
	t.Parallel()

	ring := newTestHDKeyRing(t, CoinTypeBitcoin)

	keyDesc, err := ring.DeriveKey(KeyLocator{
		Family: KeyFamilyECDH,
		Index:  9,
	})
	require.NoError(t, err)

	remoteKey, _ := btcec.PrivKeyFromBytes(ecdhPrivBytesA)
	remote := &PrivKeyECDH{PrivKey: remoteKey}

	ringSecret, err := ring.ECDH(keyDesc, remote.PubKey())
	require.NoError(t, err)

	remoteSecret, err := remote.ECDH(keyDesc.PubKey)
	require.NoError(t, err)

	require.Equal(t, remoteSecret, ringSecret)

	// A descriptor the ring cannot resolve surfaces the derivation
	// failure instead of a bogus secret.
	foreignKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	_, err = ring.ECDH(KeyDescriptor{
		KeyLocator: KeyLocator{Family: KeyFamilyECDH},
		PubKey:     foreignKey.PubKey(),
	}, remote.PubKey())
	require.ErrorIs(t, err, ErrCannotDerivePrivKey)
}
