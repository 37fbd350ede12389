package keytree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// serializedKeyLen is the length of the binary serialization of an
	// extended key before the checksum is appended: a 4-byte version, a
	// depth byte, a 4-byte parent fingerprint, a 4-byte child index, the
	// 32-byte chain code and 33 bytes of key data.
	serializedKeyLen = 4 + 1 + 4 + 4 + 32 + 33

	// checksumLen is the length of the trailing checksum, the leading
	// bytes of the double SHA-256 of the serialized key.
	checksumLen = 4
)

var (
	// ErrBadChecksum is returned when the checksum of a decoded extended
	// key does not match the payload it trails.
	ErrBadChecksum = errors.New("bad extended key checksum")

	// ErrInvalidKeyLen is returned when a decoded extended key does not
	// carry exactly the serialized length plus a checksum.
	ErrInvalidKeyLen = errors.New("serialized extended key length is " +
		"invalid")

	// ErrUnknownVersion is returned when the version bytes of a decoded
	// extended key match none of the candidate networks, in either their
	// public or private form.
	ErrUnknownVersion = errors.New("unknown extended key version")
)

// serialize encodes the node under the given version bytes and key data,
// appending the double SHA-256 checksum and base58 encoding the result.
func (k *PublicNode) serialize(version [4]byte, keyData []byte) string {
	serializedBytes := make([]byte, 0, serializedKeyLen+checksumLen)
	serializedBytes = append(serializedBytes, version[:]...)
	serializedBytes = append(serializedBytes, k.depth)
	serializedBytes = binary.BigEndian.AppendUint32(
		serializedBytes, k.parentFP,
	)
	serializedBytes = binary.BigEndian.AppendUint32(
		serializedBytes, k.index,
	)
	serializedBytes = append(serializedBytes, k.chainCode...)
	serializedBytes = append(serializedBytes, keyData...)

	checkSum := chainhash.DoubleHashB(serializedBytes)[:checksumLen]
	serializedBytes = append(serializedBytes, checkSum...)

	return base58.Encode(serializedBytes)
}

// String returns the extended public key of the node: its serialization
// under the network's public version bytes with the compressed public key as
// key data, base58 encoded with a checksum.
func (k *PublicNode) String() string {
	return k.serialize(
		k.net.HDPublicKeyID, k.pubKey.SerializeCompressed(),
	)
}

// String returns the extended private key of the node: its serialization
// under the network's private version bytes with a zero pad byte and the
// private key as key data, base58 encoded with a checksum.
func (k *PrivateNode) String() string {
	keyData := make([]byte, 0, 33)
	keyData = append(keyData, 0x00)
	keyData = append(keyData, k.privKey.Serialize()...)

	return k.serialize(k.net.HDPrivateKeyID, keyData)
}

// resolveVersion matches decoded version bytes against the candidate
// networks, reporting the owning network and whether the private or the
// public version matched.
func resolveVersion(version []byte, nets []*chaincfg.Params) (
	*chaincfg.Params, bool, error) {

	for _, net := range nets {
		if net == nil {
			continue
		}

		if bytes.Equal(version, net.HDPrivateKeyID[:]) {
			return net, true, nil
		}
		if bytes.Equal(version, net.HDPublicKeyID[:]) {
			return net, false, nil
		}
	}

	return nil, false, ErrUnknownVersion
}

// ParseExtendedKey decodes a base58 extended key into a node, resolving the
// version bytes against the given candidate networks. The result is a
// *PrivateNode when a private version matched and a *PublicNode otherwise.
//
// Validation happens in a fixed order: the trailing checksum is verified
// over whatever payload was decoded, then the payload length is required to
// be exact, then the version bytes must resolve, and finally the key data
// must be a private scalar in range (private form, with its mandatory zero
// pad byte) or a valid compressed curve point (public form). Each failure
// maps to its own error so callers can tell corruption, truncation and
// foreign networks apart.
func ParseExtendedKey(encoded string,
	nets ...*chaincfg.Params) (Node, error) {

	decoded := base58.Decode(encoded)
	if len(decoded) < checksumLen+1 {
		return nil, ErrInvalidKeyLen
	}

	payload := decoded[:len(decoded)-checksumLen]
	checkSum := decoded[len(decoded)-checksumLen:]
	expected := chainhash.DoubleHashB(payload)[:checksumLen]
	if !bytes.Equal(checkSum, expected) {
		return nil, ErrBadChecksum
	}

	if len(payload) != serializedKeyLen {
		return nil, ErrInvalidKeyLen
	}

	version := payload[:4]
	depth := payload[4]
	parentFP := binary.BigEndian.Uint32(payload[5:9])
	index := binary.BigEndian.Uint32(payload[9:13])
	chainCode := payload[13:45]
	keyData := payload[45:serializedKeyLen]

	net, private, err := resolveVersion(version, nets)
	if err != nil {
		return nil, err
	}

	if private {
		// The key data of a private key is the scalar behind a zero
		// pad byte, and the scalar must be in [1, N-1].
		if keyData[0] != 0x00 {
			return nil, fmt.Errorf("%w: private key data must "+
				"lead with a zero byte", ErrInvalidKeyData)
		}

		var scalar btcec.ModNScalar
		overflow := scalar.SetByteSlice(keyData[1:])
		if overflow || scalar.IsZero() {
			return nil, fmt.Errorf("%w: private key is outside "+
				"the valid range", ErrInvalidKeyData)
		}

		privKey := btcec.PrivateKey{Key: scalar}
		return NewPrivateNode(
			&privKey, chainCode, depth, parentFP, index, net,
		)
	}

	pubKey, err := btcec.ParsePubKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyData, err)
	}

	return NewPublicNode(pubKey, chainCode, depth, parentFP, index, net)
}
