package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/keytree"
	"github.com/lightningnetwork/keytree/mnemonic"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const (
	testSeedHex = "000102030405060708090a0b0c0d0e0f"

	testMasterPriv = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbP" +
		"y6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxr" +
		"MFHi"

	testMasterPub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8Nq" +
		"twybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMc" +
		"et8"

	testPhrase = "abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon about"
)

// runProbe runs the given probe function through a real app so that global
// and command flags are parsed the same way they are in production.
func runProbe(t *testing.T, flags []cli.Flag, args []string,
	probe func(*cli.Context)) {

	t.Helper()

	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "network, n",
			Value: "mainnet",
		},
	}
	app.Commands = []cli.Command{{
		Name:  "probe",
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			probe(ctx)
			return nil
		},
	}}

	require.NoError(t, app.Run(append([]string{"ktcli"}, args...)))
}

// TestParamsForNetwork asserts the accepted network names.
func TestParamsForNetwork(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want *chaincfg.Params
	}{
		{name: "mainnet", want: &chaincfg.MainNetParams},
		{name: "Mainnet", want: &chaincfg.MainNetParams},
		{name: "testnet", want: &chaincfg.TestNet3Params},
		{name: "testnet3", want: &chaincfg.TestNet3Params},
		{name: "regtest", want: &chaincfg.RegressionNetParams},
		{name: "simnet", want: &chaincfg.SimNetParams},
		{name: "signet", want: &chaincfg.SigNetParams},
	}

	for _, tc := range testCases {
		net, err := paramsForNetwork(tc.name)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, net, tc.name)
	}

	_, err := paramsForNetwork("litecoin")
	require.ErrorContains(t, err, "unknown network")
}

// TestNetworkParams asserts that the global network flag selects the chain
// parameters seen by subcommands.
func TestNetworkParams(t *testing.T) {
	t.Parallel()

	runProbe(
		t, nil, []string{"--network", "testnet", "probe"},
		func(ctx *cli.Context) {
			net, err := networkParams(ctx)
			require.NoError(t, err)
			require.Equal(t, &chaincfg.TestNet3Params, net)
		},
	)

	// The flag defaults to mainnet.
	runProbe(t, nil, []string{"probe"}, func(ctx *cli.Context) {
		net, err := networkParams(ctx)
		require.NoError(t, err)
		require.Equal(t, &chaincfg.MainNetParams, net)
	})
}

// TestSeedFromFlags asserts the seed resolution precedence of the --seed and
// --mnemonic flags.
func TestSeedFromFlags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
		want func(t *testing.T, seed []byte, err error)
	}{
		{
			name: "hex seed",
			args: []string{"probe", "--seed", testSeedHex},
			want: func(t *testing.T, seed []byte, err error) {
				require.NoError(t, err)
				require.Equal(
					t, testSeedHex,
					hex.EncodeToString(seed),
				)
			},
		},
		{
			name: "invalid hex",
			args: []string{"probe", "--seed", "zz"},
			want: func(t *testing.T, seed []byte, err error) {
				require.ErrorContains(
					t, err, "invalid seed hex",
				)
			},
		},
		{
			name: "mnemonic",
			args: []string{"probe", "--mnemonic", testPhrase},
			want: func(t *testing.T, seed []byte, err error) {
				require.NoError(t, err)

				expected, err := mnemonic.Seed(testPhrase, "")
				require.NoError(t, err)
				require.Equal(t, expected, seed)
			},
		},
		{
			name: "mnemonic with passphrase",
			args: []string{
				"probe", "--mnemonic", testPhrase,
				"--passphrase", "TREZOR",
			},
			want: func(t *testing.T, seed []byte, err error) {
				require.NoError(t, err)

				expected, err := mnemonic.Seed(
					testPhrase, "TREZOR",
				)
				require.NoError(t, err)
				require.Equal(t, expected, seed)
			},
		},
		{
			name: "both sources",
			args: []string{
				"probe", "--seed", testSeedHex,
				"--mnemonic", testPhrase,
			},
			want: func(t *testing.T, seed []byte, err error) {
				require.ErrorContains(
					t, err, "mutually exclusive",
				)
			},
		},
		{
			name: "no source",
			args: []string{"probe"},
			want: func(t *testing.T, seed []byte, err error) {
				require.ErrorContains(t, err, "required")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runProbe(t, seedFlags, tc.args, func(ctx *cli.Context) {
				seed, err := seedFromFlags(ctx)
				tc.want(t, seed, err)
			})
		})
	}
}

// TestNodeResponse asserts the rendered fields of private and public nodes.
func TestNodeResponse(t *testing.T) {
	t.Parallel()

	seed, err := hex.DecodeString(testSeedHex)
	require.NoError(t, err)

	root, err := keytree.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	resp, err := nodeResponse(root)
	require.NoError(t, err)

	require.Equal(t, "private", resp.Type)
	require.Equal(t, "mainnet", resp.Network)
	require.Equal(t, uint8(0), resp.Depth)
	require.Equal(t, uint32(0), resp.Index)
	require.Equal(t, "3442193e", resp.Fingerprint)
	require.Equal(t, "00000000", resp.ParentFingerprint)
	require.Equal(
		t,
		"873dff81c02f525623fd1fe5167eac3a55a049de3d314bb42ee227ffed"+
			"37d508",
		resp.ChainCode,
	)
	require.Equal(
		t,
		"0339a36013301597daef41fbe593a02cc513d0b55527ec2df1050e2e8f"+
			"f49c85c2",
		resp.PublicKey,
	)
	require.Equal(t, "15mKKb2eos1hWa6tisdPwwDC1a5J1y9nma", resp.Address)
	require.Equal(t, testMasterPriv, resp.ExtendedPrivateKey)
	require.Equal(t, testMasterPub, resp.ExtendedPublicKey)

	// The WIF encoding must round trip back to the same private key.
	wif, err := btcutil.DecodeWIF(resp.Wif)
	require.NoError(t, err)
	require.True(t, wif.CompressPubKey)
	require.Equal(
		t, root.PrivKey().Serialize(), wif.PrivKey.Serialize(),
	)

	// A neutered node renders without the private half.
	pubResp, err := nodeResponse(root.Neuter())
	require.NoError(t, err)

	require.Equal(t, "public", pubResp.Type)
	require.Equal(t, testMasterPub, pubResp.ExtendedPublicKey)
	require.Empty(t, pubResp.ExtendedPrivateKey)
	require.Empty(t, pubResp.Wif)
	require.Equal(t, resp.Address, pubResp.Address)
}

// TestActionDecorator asserts the error translation applied to command
// actions.
func TestActionDecorator(t *testing.T) {
	t.Parallel()

	// Successful actions pass through untouched.
	err := actionDecorator(func(*cli.Context) error {
		return nil
	})(nil)
	require.NoError(t, err)

	// Version mismatches gain a hint about the network flag.
	err = actionDecorator(func(*cli.Context) error {
		return fmt.Errorf("parse: %w", keytree.ErrUnknownVersion)
	})(nil)
	require.ErrorIs(t, err, keytree.ErrUnknownVersion)
	require.ErrorContains(t, err, "--network")

	// Any other error is returned as is.
	boom := errors.New("boom")
	err = actionDecorator(func(*cli.Context) error {
		return boom
	})(nil)
	require.Equal(t, boom, err)
}
