package validator

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Kind tags which branch of a Node is populated.
type Kind uint8

const (
	KindMessage Kind = iota + 1
	KindFields
	KindList
)

// Node is one entry of an error tree: a message, a nested set of field
// errors, or an indexed list for array fields. A nil item in a list means the
// element at that index is valid.
type Node struct {
	Kind    Kind
	Message string
	Fields  Errors
	Items   []*Node
}

// Errors maps a field name to its error. It mirrors the shape of the
// validated value; an empty Errors means valid.
type Errors map[string]*Node

func Message(msg string) *Node {
	return &Node{Kind: KindMessage, Message: msg}
}

func Fields(fields Errors) *Node {
	return &Node{Kind: KindFields, Fields: fields}
}

func List(items []*Node) *Node {
	return &Node{Kind: KindList, Items: items}
}

// HasErrors reports whether any rule was violated.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Lookup walks a dotted path ("matchingDetails.leftColumn.0") and returns the
// message found there. It returns false when the path is absent or ends on a
// non-message node.
func (e Errors) Lookup(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	parts := strings.Split(path, ".")
	node, ok := e[parts[0]]
	if !ok || node == nil {
		return "", false
	}
	for _, part := range parts[1:] {
		switch node.Kind {
		case KindFields:
			node = node.Fields[part]
		case KindList:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node.Items) {
				return "", false
			}
			node = node.Items[i]
		default:
			return "", false
		}
		if node == nil {
			return "", false
		}
	}
	if node.Kind != KindMessage {
		return "", false
	}
	return node.Message, true
}

// Flatten renders every message leaf as "dotted.path" -> message.
func (e Errors) Flatten() map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", e)
	return out
}

// Paths returns every leaf path in sorted order.
func (e Errors) Paths() []string {
	flat := e.Flatten()
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func flattenInto(out map[string]string, prefix string, e Errors) {
	for key, node := range e {
		flattenNode(out, join(prefix, key), node)
	}
}

func flattenNode(out map[string]string, path string, node *Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case KindMessage:
		out[path] = node.Message
	case KindFields:
		flattenInto(out, path, node.Fields)
	case KindList:
		for i, item := range node.Items {
			flattenNode(out, join(path, strconv.Itoa(i)), item)
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// MarshalJSON renders the tree the way form libraries expect: a string, an
// object, or an array with nulls for valid elements.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	switch n.Kind {
	case KindMessage:
		return json.Marshal(n.Message)
	case KindFields:
		return json.Marshal(n.Fields)
	case KindList:
		return json.Marshal(n.Items)
	default:
		return []byte("null"), nil
	}
}
