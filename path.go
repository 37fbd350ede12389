package keytree

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a parsed derivation path: the sequence of child indices, hardened
// bit included where applicable, that leads from a tree root to a node.
// Paths carry no back references; a node at a path is produced on demand by
// folding Derive over the indices.
type Path []uint32

// ParsePath converts the human readable form of a derivation path, such as
// "m/44'/0'/0/1", into its index sequence. The leading "m" (or "M") names
// the root; each following component is a decimal child number with an
// optional hardened marker, any of ', h or H. Whitespace around components
// is ignored. "m" by itself parses to the empty path.
func ParsePath(path string) (Path, error) {
	components := strings.Split(path, "/")

	if root := strings.TrimSpace(components[0]); root != "m" &&
		root != "M" {

		return nil, fmt.Errorf("derivation path must begin with " +
			"\"m/\"")
	}
	components = components[1:]

	result := make(Path, 0, len(components))
	for _, component := range components {
		component = strings.TrimSpace(component)

		var hardened bool
		for _, marker := range []string{"'", "h", "H"} {
			if strings.HasSuffix(component, marker) {
				hardened = true
				component = strings.TrimSpace(
					strings.TrimSuffix(component, marker),
				)
				break
			}
		}

		if component == "" {
			return nil, fmt.Errorf("empty derivation path " +
				"component")
		}

		value, err := strconv.ParseUint(component, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid derivation path "+
				"component %q: %w", component, err)
		}
		if value >= uint64(HardenedKeyStart) {
			return nil, fmt.Errorf("derivation path component "+
				"%d exceeds %d", value, HardenedKeyStart-1)
		}

		index := uint32(value)
		if hardened {
			index += HardenedKeyStart
		}

		result = append(result, index)
	}

	return result, nil
}

// String returns the canonical human readable form of the path, using the
// apostrophe as the hardened marker.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")

	for _, index := range p {
		if index >= HardenedKeyStart {
			fmt.Fprintf(&b, "/%d'", index-HardenedKeyStart)
		} else {
			fmt.Fprintf(&b, "/%d", index)
		}
	}

	return b.String()
}

// DerivePath folds Derive over the path, returning the private node the
// path leads to from the receiver.
func (k *PrivateNode) DerivePath(path Path) (*PrivateNode, error) {
	node := k
	for _, index := range path {
		var err error
		node, err = node.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive child at "+
				"index %d: %w", index, err)
		}
	}

	return node, nil
}

// DerivePath folds Derive over the path, returning the public node the path
// leads to from the receiver. Any hardened component fails the whole walk
// with ErrDeriveHardFromPublic.
func (k *PublicNode) DerivePath(path Path) (*PublicNode, error) {
	node := k
	for _, index := range path {
		var err error
		node, err = node.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive child at "+
				"index %d: %w", index, err)
		}
	}

	return node, nil
}

// DerivePath folds Derive over the path for any node flavor.
func DerivePath(n Node, path Path) (Node, error) {
	node := n
	for _, index := range path {
		var err error
		node, err = Derive(node, index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive child at "+
				"index %d: %w", index, err)
		}
	}

	return node, nil
}
