package vdom

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PatchOp is the JSON Patch (RFC 6902) operation a patch is applied with.
type PatchOp string

const (
	OpAdd     PatchOp = "add"
	OpRemove  PatchOp = "remove"
	OpReplace PatchOp = "replace"
	OpMove    PatchOp = "move"
)

// PatchKind says what a patch means for the document. Clients apply patches
// by Op and Path alone; Kind is informational.
type PatchKind string

const (
	PatchSetText         PatchKind = "set-text"
	PatchSetAttr         PatchKind = "set-attribute"
	PatchRemoveAttr      PatchKind = "remove-attribute"
	PatchAddHandler      PatchKind = "add-handler"
	PatchRemoveHandler   PatchKind = "remove-handler"
	PatchUpdateHandler   PatchKind = "update-handler"
	PatchInsertNode      PatchKind = "insert"
	PatchRemoveNode      PatchKind = "remove"
	PatchMoveNode        PatchKind = "move"
	PatchReplaceNode     PatchKind = "replace"
	PatchSetImportSource PatchKind = "set-import-source"
)

// Patch is a single change to the client's model, addressed by JSON pointer.
// Patches are applied in order; each path is valid against the model as left
// by the patches before it.
type Patch struct {
	Op    PatchOp
	Path  string
	From  string
	Value any
	Kind  PatchKind
}

// MarshalJSON encodes the patch as a JSON Patch operation. Value is only
// written for add and replace so that an empty string stays distinguishable
// from an absent value.
func (p Patch) MarshalJSON() ([]byte, error) {
	type wire struct {
		Op    PatchOp   `json:"op"`
		Path  string    `json:"path"`
		From  string    `json:"from,omitempty"`
		Value *any      `json:"value,omitempty"`
		Kind  PatchKind `json:"kind"`
	}
	w := wire{Op: p.Op, Path: p.Path, From: p.From, Kind: p.Kind}
	if p.Op == OpAdd || p.Op == OpReplace {
		v := p.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a JSON Patch operation.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var w struct {
		Op    PatchOp   `json:"op"`
		Path  string    `json:"path"`
		From  string    `json:"from"`
		Value any       `json:"value"`
		Kind  PatchKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Patch{Op: w.Op, Path: w.Path, From: w.From, Value: w.Value, Kind: w.Kind}
	return nil
}

// String returns a short human-readable form, used in logs and test output.
func (p Patch) String() string {
	if p.Op == OpMove {
		return string(p.Kind) + " " + p.From + " -> " + p.Path
	}
	return string(p.Kind) + " " + p.Path
}

// ChildPath returns the pointer to the i-th child of the node at parent.
func ChildPath(parent string, i int) string {
	return parent + "/children/" + strconv.Itoa(i)
}

// AttrPath returns the pointer to an attribute of the node at path.
func AttrPath(path, name string) string {
	return path + "/attributes/" + escapePointer(name)
}

// HandlerPath returns the pointer to an event handler of the node at path.
func HandlerPath(path, event string) string {
	return path + "/eventHandlers/" + escapePointer(event)
}

// escapePointer escapes a JSON pointer reference token.
func escapePointer(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// UnescapePointer reverses the JSON pointer escaping of a reference token.
func UnescapePointer(token string) string {
	if !strings.Contains(token, "~") {
		return token
	}
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
