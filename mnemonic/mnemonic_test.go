package mnemonic

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/keytree"
	"github.com/stretchr/testify/require"
)

const (
	// testPhrase is the reference 12 word phrase from the BIP39 test
	// vectors, entropy of all zero bytes.
	testPhrase = "abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon about"

	// testPhraseSeed is the seed of testPhrase with passphrase "TREZOR",
	// taken from the same vectors.
	testPhraseSeed = "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9" +
		"efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c" +
		"81b2f001698e7463b04"
)

// TestSeedVector asserts the reference phrase stretches to the published
// seed.
func TestSeedVector(t *testing.T) {
	t.Parallel()

	seed, err := Seed(testPhrase, "TREZOR")
	require.NoError(t, err)
	require.Equal(t, testPhraseSeed, hex.EncodeToString(seed))
}

// TestSeedChecksum asserts that phrases with a bad checksum or unknown words
// are rejected.
func TestSeedChecksum(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		phrase string
	}{
		{
			name: "bad checksum",
			phrase: "abandon abandon abandon abandon abandon " +
				"abandon abandon abandon abandon abandon " +
				"abandon abandon",
		},
		{
			name:   "unknown word",
			phrase: strings.Replace(testPhrase, "about", "zzz", 1),
		},
		{
			name:   "truncated",
			phrase: strings.TrimSuffix(testPhrase, " about"),
		},
		{
			name:   "empty",
			phrase: "",
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Seed(tc.phrase, "")
			require.Error(t, err)
		})
	}
}

// TestSeedPassphrase asserts that the passphrase salts the seed.
func TestSeedPassphrase(t *testing.T) {
	t.Parallel()

	bare, err := Seed(testPhrase, "")
	require.NoError(t, err)

	salted, err := Seed(testPhrase, "TREZOR")
	require.NoError(t, err)

	require.NotEqual(t, bare, salted)
}

// TestNewMnemonic asserts the accepted entropy sizes and the resulting word
// counts.
func TestNewMnemonic(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		bits  int
		words int
		valid bool
	}{
		{bits: 128, words: 12, valid: true},
		{bits: 160, words: 15, valid: true},
		{bits: 192, words: 18, valid: true},
		{bits: 224, words: 21, valid: true},
		{bits: 256, words: 24, valid: true},
		{bits: 0, valid: false},
		{bits: 100, valid: false},
		{bits: 512, valid: false},
	}

	for _, tc := range testCases {
		phrase, err := NewMnemonic(tc.bits)
		if !tc.valid {
			require.Error(t, err, "bits %d", tc.bits)
			continue
		}

		require.NoError(t, err)
		require.Len(t, strings.Fields(phrase), tc.words)

		// The phrase must round trip through seed stretching.
		_, err = Seed(phrase, "")
		require.NoError(t, err)
	}

	// Two fresh phrases must not collide.
	first, err := NewMnemonic(DefaultEntropyBits)
	require.NoError(t, err)
	second, err := NewMnemonic(DefaultEntropyBits)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

// TestNewMaster asserts that NewMaster is the composition of Seed and
// keytree.NewMaster on all supported networks.
func TestNewMaster(t *testing.T) {
	t.Parallel()

	seed, err := Seed(testPhrase, "TREZOR")
	require.NoError(t, err)

	for _, net := range []*chaincfg.Params{
		&chaincfg.MainNetParams, &chaincfg.TestNet3Params,
	} {
		want, err := keytree.NewMaster(seed, net)
		require.NoError(t, err)

		got, err := NewMaster(testPhrase, "TREZOR", net)
		require.NoError(t, err)

		require.Equal(t, want.String(), got.String())
		require.Equal(t, net, got.Network())
	}

	// A phrase that fails checksum validation never reaches the key tree.
	_, err = NewMaster("abandon", "", &chaincfg.MainNetParams)
	require.Error(t, err)
}
