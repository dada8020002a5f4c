// Package catalog flattens WMS capability trees into leaf-layer records.
package catalog

import (
	"errors"
	"fmt"

	"github.com/delta10/layer-catalog/internal/wms"
)

// MaxDepth bounds the capability-tree descent. Service-advertised documents
// nest a handful of levels; anything deeper is treated as malformed.
const MaxDepth = 32

// ErrTreeTooDeep is returned for documents nested beyond MaxDepth.
var ErrTreeTooDeep = errors.New("capability tree exceeds maximum depth")

// Node is one classified node of a capability tree. Exactly one of the
// three variants — Wrapper, Branch, Leaf — applies to every node, decided
// once at classification time.
type Node interface {
	node()
}

// Wrapper holds a nested capability section and contributes nothing itself.
type Wrapper struct {
	Inner Node
}

// Branch holds ordered sublayers and is discarded in favor of its children.
type Branch struct {
	Children []Node
}

// Leaf is a terminal layer, the unit surfaced to callers.
type Leaf struct {
	Layer *wms.Layer
}

func (Wrapper) node() {}
func (Branch) node()  {}
func (Leaf) node()    {}

// Classify builds the node tree for a parsed capabilities document, so the
// walk in Flatten can dispatch exhaustively over the three variants.
func Classify(doc *wms.Capabilities) (Node, error) {
	inner, err := classifyLayer(&doc.Capability.Layer, 1)
	if err != nil {
		return nil, err
	}

	return Wrapper{Inner: inner}, nil
}

func classifyLayer(layer *wms.Layer, depth int) (Node, error) {
	if depth > MaxDepth {
		return nil, ErrTreeTooDeep
	}

	if len(layer.Layer) == 0 {
		return Leaf{Layer: layer}, nil
	}

	children := make([]Node, 0, len(layer.Layer))
	for i := range layer.Layer {
		child, err := classifyLayer(&layer.Layer[i], depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return Branch{Children: children}, nil
}

// Flatten walks a classified tree and returns its leaves in document order.
// Wrappers pass through, branches concatenate the flattened results of
// their children. The walk is depth-limited so a hand-built cyclic or
// degenerate tree cannot recurse unboundedly.
func Flatten(node Node) ([]*wms.Layer, error) {
	return flatten(node, 0)
}

func flatten(node Node, depth int) ([]*wms.Layer, error) {
	if depth > MaxDepth {
		return nil, ErrTreeTooDeep
	}

	switch n := node.(type) {
	case Wrapper:
		return flatten(n.Inner, depth+1)
	case Branch:
		var leaves []*wms.Layer
		for _, child := range n.Children {
			flattened, err := flatten(child, depth+1)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, flattened...)
		}
		return leaves, nil
	case Leaf:
		return []*wms.Layer{n.Layer}, nil
	default:
		return nil, fmt.Errorf("unknown capability node %T", node)
	}
}
