package layout

import (
	"strconv"
	"strings"

	"github.com/vango-dev/live/pkg/vdom"
)

// Component instances are addressed by arena paths built from segments:
//
//	""          the root component
//	"r"         what a component rendered
//	"k<key>"    a keyed child of an element
//	"u<n>"      the n-th unkeyed child of an element
//
// Paths only change when a component changes position among keyed siblings
// or its unkeyed ordinal, which is exactly when its state must be discarded.

func childPath(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}

func renderedPath(path string) string {
	return childPath(path, "r")
}

func parentPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

func pathDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// componentDepth returns how many components enclose the component at path,
// itself included.
func componentDepth(path string) int {
	n := 1
	for _, seg := range strings.Split(path, "/") {
		if seg == "r" {
			n++
		}
	}
	return n
}

var segmentEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// childSegments returns the path segment of each child. The first child with
// a given key is addressed by the key; children without a key, and later
// children repeating a key, are addressed by their unkeyed ordinal. The
// repeated keys are returned.
func childSegments(children []*vdom.VNode) (segs []string, duplicates []string) {
	segs = make([]string, len(children))
	var seen map[string]bool
	unkeyed := 0
	for i, child := range children {
		if child.Key != "" {
			if seen == nil {
				seen = make(map[string]bool)
			}
			if !seen[child.Key] {
				seen[child.Key] = true
				segs[i] = "k" + segmentEscaper.Replace(child.Key)
				continue
			}
			duplicates = append(duplicates, child.Key)
		}
		segs[i] = "u" + strconv.Itoa(unkeyed)
		unkeyed++
	}
	return segs, duplicates
}

// segments is childSegments for children being committed; repeated keys are
// reported.
func (p *pass) segments(children []*vdom.VNode, path string) []string {
	segs, dups := childSegments(children)
	if len(dups) > 0 {
		p.l.logger.Warn("duplicate keys among siblings, matching them by position",
			"path", path,
			"keys", dups)
	}
	return segs
}

// diffChildren reconciles the children of two matched elements.
//
// Children are matched by path segment: keyed children by key, unkeyed ones
// by their order among unkeyed siblings. Unmatched old children are removed
// first, from the highest index down. The new list is then built left to
// right: a matched child that is not yet at its index is moved there, an
// unmatched one is inserted. Patches therefore address positions in the list
// as the client sees it at that point.
func (p *pass) diffChildren(old, next *vdom.VNode, ptr, path string, depth int) {
	switch {
	case len(old.Children) == 0 && len(next.Children) == 0:
		return

	case len(old.Children) == 0:
		segs := p.segments(next.Children, path)
		for i, child := range next.Children {
			next.Children[i] = p.mount(child, childPath(path, segs[i]), depth)
		}
		p.emit(vdom.Patch{Op: vdom.OpAdd, Path: ptr + "/children", Value: vdom.EncodeChildren(next.Children), Kind: vdom.PatchInsertNode})
		return

	case len(next.Children) == 0:
		segs, _ := childSegments(old.Children)
		for i, child := range old.Children {
			p.unmount(child, childPath(path, segs[i]))
		}
		p.emit(vdom.Patch{Op: vdom.OpRemove, Path: ptr + "/children", Kind: vdom.PatchRemoveNode})
		return
	}

	oldSegs, _ := childSegments(old.Children)
	newSegs := p.segments(next.Children, path)

	oldIndex := make(map[string]int, len(oldSegs))
	for j, seg := range oldSegs {
		oldIndex[seg] = j
	}
	match := make([]int, len(next.Children))
	kept := make([]bool, len(old.Children))
	for i, seg := range newSegs {
		j, ok := oldIndex[seg]
		if !ok {
			match[i] = -1
			continue
		}
		match[i] = j
		kept[j] = true
	}

	for j := len(old.Children) - 1; j >= 0; j-- {
		if !kept[j] {
			p.unmount(old.Children[j], childPath(path, oldSegs[j]))
			p.emit(vdom.Patch{Op: vdom.OpRemove, Path: vdom.ChildPath(ptr, j), Kind: vdom.PatchRemoveNode})
		}
	}

	// current mirrors the client's list: old indices of kept children, -1
	// for inserted ones.
	current := make([]int, 0, len(next.Children))
	for j := range old.Children {
		if kept[j] {
			current = append(current, j)
		}
	}

	for i, child := range next.Children {
		cpath := childPath(path, newSegs[i])
		j := match[i]
		if j < 0 {
			n := p.mount(child, cpath, depth)
			next.Children[i] = n
			p.emit(vdom.Patch{Op: vdom.OpAdd, Path: vdom.ChildPath(ptr, i), Value: vdom.Encode(n), Kind: vdom.PatchInsertNode})
			current = insertAt(current, i, -1)
			continue
		}

		pos := indexFrom(current, j, i)
		if pos != i {
			p.emit(vdom.Patch{Op: vdom.OpMove, From: vdom.ChildPath(ptr, pos), Path: vdom.ChildPath(ptr, i), Kind: vdom.PatchMoveNode})
			current = moveTo(current, pos, i)
		}
		next.Children[i] = p.diff(old.Children[j], child, vdom.ChildPath(ptr, i), cpath, depth)
	}
}

func indexFrom(s []int, v, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == v {
			return i
		}
	}
	return -1
}

func insertAt(s []int, i, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func moveTo(s []int, from, to int) []int {
	v := s[from]
	copy(s[to+1:from+1], s[to:from])
	s[to] = v
	return s
}

// locate finds the committed node at an arena path and its pointer in the
// client model.
func (l *Layout) locate(path string) (*vdom.VNode, string, bool) {
	node, ptr := l.tree, ""
	if path == "" {
		return node, ptr, node != nil
	}
	for _, seg := range strings.Split(path, "/") {
		if node == nil {
			return nil, "", false
		}
		if seg == "r" {
			if node.Kind != vdom.KindComponent {
				return nil, "", false
			}
			node = node.Rendered()
			continue
		}
		segs, _ := childSegments(node.Children)
		idx := -1
		for i, s := range segs {
			if s == seg {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, "", false
		}
		node = node.Children[idx]
		ptr = vdom.ChildPath(ptr, idx)
	}
	return node, ptr, node != nil
}
