package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/keytree"
	"github.com/lightningnetwork/keytree/keyring"
	"github.com/lightningnetwork/keytree/mnemonic"
	"github.com/urfave/cli"
)

// printRespJSON pretty prints the given response to stdout.
func printRespJSON(resp interface{}) {
	b, err := json.Marshal(resp)
	if err != nil {
		fatal(err)
	}

	var out bytes.Buffer
	_ = json.Indent(&out, b, "", "    ")
	_, _ = out.WriteString("\n")
	_, _ = out.WriteTo(os.Stdout)
}

// actionDecorator is used to add additional information and error handling
// to command actions.
func actionDecorator(f func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		err := f(c)
		if err == nil {
			return nil
		}

		// A version mismatch usually means the key itself is fine but
		// was encoded for a different network than the one selected
		// on the command line.
		if errors.Is(err, keytree.ErrUnknownVersion) {
			return fmt.Errorf("%w (does --network match the "+
				"key's encoding?)", err)
		}

		return err
	}
}

// paramsForNetwork maps a network name to its chain parameters.
func paramsForNetwork(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "mainnet":
		return &chaincfg.MainNetParams, nil

	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	case "simnet":
		return &chaincfg.SimNetParams, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	default:
		return nil, fmt.Errorf("unknown network: %v", network)
	}
}

// networkParams resolves the global network flag to chain parameters.
func networkParams(ctx *cli.Context) (*chaincfg.Params, error) {
	return paramsForNetwork(ctx.GlobalString("network"))
}

// seedFlags are shared by all commands that root a tree from scratch.
var seedFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "seed",
		Usage: "the seed as a hex string",
	},
	cli.StringFlag{
		Name: "mnemonic",
		Usage: "a BIP39 mnemonic phrase, quoted as a single " +
			"argument",
	},
	cli.StringFlag{
		Name:  "passphrase",
		Usage: "the optional passphrase salting the mnemonic",
	},
}

// seedFromFlags resolves the seed material from the --seed or --mnemonic
// flags, exactly one of which must be set.
func seedFromFlags(ctx *cli.Context) ([]byte, error) {
	haveSeed := ctx.IsSet("seed")
	haveMnemonic := ctx.IsSet("mnemonic")

	switch {
	case haveSeed && haveMnemonic:
		return nil, errors.New("--seed and --mnemonic are mutually " +
			"exclusive")

	case haveSeed:
		seed, err := hex.DecodeString(ctx.String("seed"))
		if err != nil {
			return nil, fmt.Errorf("invalid seed hex: %w", err)
		}
		return seed, nil

	case haveMnemonic:
		return mnemonic.Seed(
			ctx.String("mnemonic"), ctx.String("passphrase"),
		)

	default:
		return nil, errors.New("one of --seed or --mnemonic is " +
			"required")
	}
}

// seedResponse is the output of the genseed command.
type seedResponse struct {
	Seed  string `json:"seed"`
	Bytes int    `json:"bytes"`
}

// mnemonicResponse is the output of the genmnemonic command.
type mnemonicResponse struct {
	Mnemonic    string `json:"mnemonic"`
	EntropyBits int    `json:"entropy_bits"`
}

// keyResponse describes one node of a key tree in display form.
type keyResponse struct {
	Type               string `json:"type"`
	Network            string `json:"network"`
	Depth              uint8  `json:"depth"`
	Index              uint32 `json:"index"`
	Fingerprint        string `json:"fingerprint"`
	ParentFingerprint  string `json:"parent_fingerprint"`
	ChainCode          string `json:"chain_code"`
	PublicKey          string `json:"public_key"`
	Address            string `json:"address"`
	ExtendedPublicKey  string `json:"extended_public_key"`
	ExtendedPrivateKey string `json:"extended_private_key,omitempty"`
	Wif                string `json:"wif,omitempty"`
}

// addressResponse is the output of the addr command.
type addressResponse struct {
	Address    string `json:"address"`
	PubKeyHash string `json:"pubkey_hash"`
	Network    string `json:"network"`
	Path       string `json:"path,omitempty"`
}

// ringKeyResponse is the output of the ringkey command.
type ringKeyResponse struct {
	Family     uint32 `json:"family"`
	FamilyName string `json:"family_name"`
	Index      uint32 `json:"index"`
	Path       string `json:"path"`
	PublicKey  string `json:"public_key"`
	Wif        string `json:"wif"`
}

// nodeResponse renders a tree node with everything a caller might want to
// know about it. Private nodes additionally carry their serialized private
// half and the WIF encoding of the raw key.
func nodeResponse(node keytree.Node) (*keyResponse, error) {
	pubNode, err := keytree.Neuter(node)
	if err != nil {
		return nil, err
	}

	address, err := node.Address()
	if err != nil {
		return nil, err
	}

	resp := &keyResponse{
		Type:              "public",
		Network:           node.Network().Name,
		Depth:             node.Depth(),
		Index:             node.Index(),
		Fingerprint:       hex.EncodeToString(node.Fingerprint()),
		ParentFingerprint: fmt.Sprintf("%08x", node.ParentFingerprint()),
		ChainCode:         hex.EncodeToString(node.ChainCode()),
		PublicKey: hex.EncodeToString(
			node.PubKey().SerializeCompressed(),
		),
		Address:           address.EncodeAddress(),
		ExtendedPublicKey: pubNode.String(),
	}

	if privNode, ok := node.(*keytree.PrivateNode); ok {
		wif, err := privNode.WIF()
		if err != nil {
			return nil, err
		}

		resp.Type = "private"
		resp.ExtendedPrivateKey = privNode.String()
		resp.Wif = wif.String()
	}

	return resp, nil
}

var genSeedCommand = cli.Command{
	Name:      "genseed",
	Category:  "Seed",
	Usage:     "Generate a cryptographically random seed.",
	ArgsUsage: "[--bytes=N]",
	Description: `
	Generate a fresh seed suitable for rooting a new key tree.

	The seed is printed as hex and never stored anywhere. Anyone holding
	it can re-derive every key in the tree, so treat the output like the
	master private key itself.
	`,
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "bytes",
			Usage: "the length of the generated seed in bytes",
			Value: uint(keytree.RecommendedSeedLen),
		},
	},
	Action: actionDecorator(genSeed),
}

func genSeed(ctx *cli.Context) error {
	length := ctx.Uint("bytes")
	if length > keytree.MaxSeedBytes {
		return fmt.Errorf("seed length must be between %d and %d "+
			"bytes", keytree.MinSeedBytes, keytree.MaxSeedBytes)
	}

	seed, err := keytree.GenerateSeed(uint8(length))
	if err != nil {
		return err
	}

	printRespJSON(&seedResponse{
		Seed:  hex.EncodeToString(seed),
		Bytes: len(seed),
	})
	return nil
}

var genMnemonicCommand = cli.Command{
	Name:      "genmnemonic",
	Category:  "Seed",
	Usage:     "Generate a fresh BIP39 mnemonic phrase.",
	ArgsUsage: "[--bits=N]",
	Description: `
	Generate a random mnemonic phrase. The entropy size must be a
	multiple of 32 between 128 and 256 bits, mapping to phrases of 12 up
	to 24 words.

	The phrase is only printed, never stored. Combined with the optional
	passphrase given to the master command it deterministically roots the
	whole key tree.
	`,
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "bits",
			Usage: "the entropy size of the phrase in bits",
			Value: mnemonic.DefaultEntropyBits,
		},
	},
	Action: actionDecorator(genMnemonic),
}

func genMnemonic(ctx *cli.Context) error {
	bits := ctx.Int("bits")

	phrase, err := mnemonic.NewMnemonic(bits)
	if err != nil {
		return err
	}

	printRespJSON(&mnemonicResponse{
		Mnemonic:    phrase,
		EntropyBits: bits,
	})
	return nil
}

var masterCommand = cli.Command{
	Name:      "master",
	Category:  "Key tree",
	Usage:     "Compute the master node of a seed or mnemonic.",
	ArgsUsage: "(--seed=hex | --mnemonic=phrase [--passphrase=pw])",
	Description: `
	Derive the master node rooting the key tree of the given seed. The
	seed can be passed directly as hex or as a BIP39 mnemonic phrase with
	an optional passphrase.

	The master node is printed with both its private and public
	serialization for the selected network.
	`,
	Flags:  seedFlags,
	Action: actionDecorator(master),
}

func master(ctx *cli.Context) error {
	net, err := networkParams(ctx)
	if err != nil {
		return err
	}

	seed, err := seedFromFlags(ctx)
	if err != nil {
		return err
	}

	root, err := keytree.NewMaster(seed, net)
	if err != nil {
		return err
	}

	resp, err := nodeResponse(root)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

var deriveCommand = cli.Command{
	Name:      "derive",
	Category:  "Key tree",
	Usage:     "Derive the child at a path below an extended key.",
	ArgsUsage: "extended_key path",
	Description: `
	Parse the given extended key and walk the derivation path below it.

	Paths use the usual notation, e.g. m/44'/0'/0'/0/1. Hardened steps
	can be marked with ', h or H and require the extended key to be
	private.
	`,
	Action: actionDecorator(derive),
}

func derive(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "derive")
	}

	net, err := networkParams(ctx)
	if err != nil {
		return err
	}

	node, err := keytree.ParseExtendedKey(ctx.Args().Get(0), net)
	if err != nil {
		return err
	}

	path, err := keytree.ParsePath(ctx.Args().Get(1))
	if err != nil {
		return err
	}

	child, err := keytree.DerivePath(node, path)
	if err != nil {
		return err
	}

	resp, err := nodeResponse(child)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

var neuterCommand = cli.Command{
	Name:      "neuter",
	Category:  "Key tree",
	Usage:     "Strip the private key material from an extended key.",
	ArgsUsage: "extended_key",
	Description: `
	Convert an extended private key into the matching extended public
	key. The result can derive the same non-hardened subtree but cannot
	spend from it.
	`,
	Action: actionDecorator(neuter),
}

func neuter(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "neuter")
	}

	net, err := networkParams(ctx)
	if err != nil {
		return err
	}

	node, err := keytree.ParseExtendedKey(ctx.Args().First(), net)
	if err != nil {
		return err
	}

	pubNode, err := keytree.Neuter(node)
	if err != nil {
		return err
	}

	resp, err := nodeResponse(pubNode)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

var decodeCommand = cli.Command{
	Name:      "decode",
	Category:  "Key tree",
	Usage:     "Decode and display an extended key.",
	ArgsUsage: "extended_key",
	Description: `
	Parse an extended key and print its components: depth, child index,
	fingerprints, chain code and key material. The checksum and network
	version bytes are validated against the selected network.
	`,
	Action: actionDecorator(decode),
}

func decode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "decode")
	}

	net, err := networkParams(ctx)
	if err != nil {
		return err
	}

	node, err := keytree.ParseExtendedKey(ctx.Args().First(), net)
	if err != nil {
		return err
	}

	resp, err := nodeResponse(node)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

var addrCommand = cli.Command{
	Name:      "addr",
	Category:  "Key tree",
	Usage:     "Show the pay-to-pubkey-hash address of an extended key.",
	ArgsUsage: "extended_key [path]",
	Description: `
	Print the pay-to-pubkey-hash address of the given extended key, or of
	the child found by walking the optional derivation path below it.
	`,
	Action: actionDecorator(addr),
}

func addr(ctx *cli.Context) error {
	if ctx.NArg() == 0 || ctx.NArg() > 2 {
		return cli.ShowCommandHelp(ctx, "addr")
	}

	net, err := networkParams(ctx)
	if err != nil {
		return err
	}

	node, err := keytree.ParseExtendedKey(ctx.Args().First(), net)
	if err != nil {
		return err
	}

	resp := &addressResponse{
		Network: net.Name,
	}

	if ctx.NArg() == 2 {
		path, err := keytree.ParsePath(ctx.Args().Get(1))
		if err != nil {
			return err
		}

		node, err = keytree.DerivePath(node, path)
		if err != nil {
			return err
		}

		resp.Path = path.String()
	}

	address, err := node.Address()
	if err != nil {
		return err
	}

	resp.Address = address.EncodeAddress()
	resp.PubKeyHash = hex.EncodeToString(node.Identifier())

	printRespJSON(resp)
	return nil
}

var ringKeyCommand = cli.Command{
	Name:      "ringkey",
	Category:  "Key ring",
	Usage:     "Derive a key from the family based key ring schema.",
	ArgsUsage: "[--family=N] [--index=N] (--seed=hex | --mnemonic=phrase)",
	Description: `
	Derive a key below the key ring purpose branch

	    m/1019'/coinType'/family'/0/index

	where the coin type follows the global network flag. Families group
	keys by role, see the keyring package for the known set.
	`,
	Flags: append([]cli.Flag{
		cli.Uint64Flag{
			Name:  "family",
			Usage: "the numeric key family to derive from",
		},
		cli.Uint64Flag{
			Name:  "index",
			Usage: "the leaf index below the family branch",
		},
	}, seedFlags...),
	Action: actionDecorator(ringKey),
}

func ringKey(ctx *cli.Context) error {
	net, err := networkParams(ctx)
	if err != nil {
		return err
	}

	family := ctx.Uint64("family")
	index := ctx.Uint64("index")
	if family > math.MaxUint32 || index > math.MaxUint32 {
		return errors.New("family and index must fit in 32 bits")
	}

	seed, err := seedFromFlags(ctx)
	if err != nil {
		return err
	}

	root, err := keytree.NewMaster(seed, net)
	if err != nil {
		return err
	}

	coinType := keyring.CoinTypeForNetwork(net)
	ring, err := keyring.NewHDKeyRing(root, coinType)
	if err != nil {
		return err
	}

	keyDesc, err := ring.DeriveKey(keyring.KeyLocator{
		Family: keyring.KeyFamily(family),
		Index:  uint32(index),
	})
	if err != nil {
		return err
	}

	privKey, err := ring.DerivePrivKey(keyring.KeyDescriptor{
		KeyLocator: keyDesc.KeyLocator,
	})
	if err != nil {
		return err
	}

	wif, err := btcutil.NewWIF(privKey, net, true)
	if err != nil {
		return err
	}

	printRespJSON(&ringKeyResponse{
		Family:     uint32(keyDesc.Family),
		FamilyName: keyDesc.Family.String(),
		Index:      keyDesc.Index,
		Path: fmt.Sprintf("m/%d'/%d'/%d'/0/%d",
			keyring.BIP0043Purpose, coinType, family,
			keyDesc.Index),
		PublicKey: hex.EncodeToString(
			keyDesc.PubKey.SerializeCompressed(),
		),
		Wif: wif.String(),
	})
	return nil
}
