package editor

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Command is an editing command applied to a selection. Formatting is
// modelled as an explicit command → fragment transform; there is no shared
// execution primitive underneath.
type Command string

// Inline formatting commands.
const (
	Bold      Command = "bold"
	Italic    Command = "italic"
	Underline Command = "underline"
)

// inlineTag maps a toggle command to the semantic tag it produces.
var inlineTag = map[Command]string{
	Bold:      "strong",
	Italic:    "em",
	Underline: "u",
}

// Selection addresses a run of the fragment's text content by rune offsets,
// counting text in document order. A collapsed selection selects nothing.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Collapsed reports whether the selection spans no text.
func (s Selection) Collapsed() bool { return s.End <= s.Start }

// blockTags are the container elements the ancestor walk never crosses when
// looking for formatting to toggle off.
var blockTags = map[string]bool{
	"div": true, "p": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "ul": true,
	"ol": true, "blockquote": true, "table": true, "tbody": true,
	"thead": true, "tr": true, "td": true, "th": true, "body": true,
}

// pruneableTags are inline wrappers that may be removed once a range
// deletion empties them. Void elements (br, img, hr) are never pruned.
var pruneableTags = map[string]bool{
	"strong": true, "em": true, "u": true, "a": true, "span": true,
	"b": true, "i": true, "code": true, "mark": true, "small": true,
}

// ApplyFormatting toggles inline formatting over the selected text of an
// HTML fragment and returns the transformed fragment.
//
// When an ancestor element of the selection (up to, but not past, the
// nearest block container) already carries the target tag, that element is
// unwrapped. Otherwise the selected content is replaced by its plain text
// wrapped in a new element of the target tag. A collapsed or out-of-range
// selection is a no-op; malformed input returns the fragment unchanged
// alongside the error.
func ApplyFormatting(fragment string, sel Selection, cmd Command) (string, error) {
	tag, ok := inlineTag[cmd]
	if !ok {
		return fragment, fmt.Errorf("editor: unknown command %q", cmd)
	}
	return transform(fragment, sel, func(root *html.Node, sel Selection) error {
		if target := findAncestorTag(root, sel, tag); target != nil {
			unwrap(target)
			return nil
		}
		el := &html.Node{Type: html.ElementNode, Data: tag}
		return replaceSelection(root, sel, el)
	})
}

// InsertLink replaces the selected text with an anchor to url. The scheme
// defaults to https when missing.
func InsertLink(fragment string, sel Selection, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return fragment, fmt.Errorf("editor: link url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return transform(fragment, sel, func(root *html.Node, sel Selection) error {
		el := &html.Node{
			Type: html.ElementNode,
			Data: "a",
			Attr: []html.Attribute{
				{Key: "href", Val: url},
				{Key: "target", Val: "_blank"},
				{Key: "rel", Val: "noopener noreferrer"},
			},
		}
		return replaceSelection(root, sel, el)
	})
}

// SetFontSize wraps the selected text in a span carrying the given pixel
// font size.
func SetFontSize(fragment string, sel Selection, px int) (string, error) {
	if px < 8 || px > 96 {
		return fragment, fmt.Errorf("editor: font size %d out of range", px)
	}
	return transform(fragment, sel, func(root *html.Node, sel Selection) error {
		el := &html.Node{
			Type: html.ElementNode,
			Data: "span",
			Attr: []html.Attribute{{Key: "style", Val: fmt.Sprintf("font-size: %dpx", px)}},
		}
		return replaceSelection(root, sel, el)
	})
}

// SetHeading converts the block containing the selection start into a
// heading of the given level (1–3). Applying the same level again toggles
// the block back to a paragraph.
func SetHeading(fragment string, sel Selection, level int) (string, error) {
	if level < 1 || level > 3 {
		return fragment, fmt.Errorf("editor: heading level %d out of range", level)
	}
	tag := fmt.Sprintf("h%d", level)
	return transform(fragment, sel, func(root *html.Node, sel Selection) error {
		node, _, found := locate(root, sel.Start)
		if !found {
			return nil
		}
		block := nearestBlock(node, root)
		if block == root {
			// Bare inline content at the top level: wrap everything into
			// one heading.
			el := &html.Node{Type: html.ElementNode, Data: tag}
			for c := root.FirstChild; c != nil; {
				next := c.NextSibling
				root.RemoveChild(c)
				el.AppendChild(c)
				c = next
			}
			root.AppendChild(el)
			return nil
		}
		if block.Data == tag {
			block.Data = "p"
			block.DataAtom = atom.P
		} else {
			block.Data = tag
			block.DataAtom = 0
		}
		return nil
	})
}

// transform parses the fragment, clamps and validates the selection, applies
// fn, and re-serializes. Any error leaves the input fragment untouched.
func transform(fragment string, sel Selection, fn func(*html.Node, Selection) error) (string, error) {
	if sel.Collapsed() || sel.Start < 0 {
		return fragment, nil
	}
	root, err := parseFragment(fragment)
	if err != nil {
		return fragment, fmt.Errorf("editor: parse fragment: %w", err)
	}
	total := textLength(root)
	if sel.Start >= total {
		return fragment, nil
	}
	if sel.End > total {
		sel.End = total
	}
	if err := fn(root, sel); err != nil {
		return fragment, err
	}
	return renderChildren(root)
}

// parseFragment parses markup in a div context and reparents the resulting
// nodes under a synthetic container for uniform traversal.
func parseFragment(fragment string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// renderChildren serializes the container's children back to markup.
func renderChildren(root *html.Node) (string, error) {
	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("editor: render: %w", err)
		}
	}
	return b.String(), nil
}

// walkText visits every text node under root in document order. The visitor
// receives the node and its global starting rune offset; returning false
// stops the walk.
func walkText(root *html.Node, visit func(n *html.Node, start int) bool) {
	offset := 0
	var rec func(n *html.Node) bool
	rec = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if !visit(c, offset) {
					return false
				}
				offset += len([]rune(c.Data))
				continue
			}
			if !rec(c) {
				return false
			}
		}
		return true
	}
	rec(root)
}

// textLength returns the total rune count of root's text content.
func textLength(root *html.Node) int {
	total := 0
	walkText(root, func(n *html.Node, _ int) bool {
		total += len([]rune(n.Data))
		return true
	})
	return total
}

// locate finds the text node containing the global rune offset pos and the
// local offset within it.
func locate(root *html.Node, pos int) (node *html.Node, local int, found bool) {
	walkText(root, func(n *html.Node, start int) bool {
		length := len([]rune(n.Data))
		if pos >= start && pos < start+length {
			node, local, found = n, pos-start, true
			return false
		}
		return true
	})
	return node, local, found
}

// selectedText returns the plain text covered by sel.
func selectedText(root *html.Node, sel Selection) string {
	var b strings.Builder
	walkText(root, func(n *html.Node, start int) bool {
		runes := []rune(n.Data)
		end := start + len(runes)
		if end <= sel.Start {
			return true
		}
		if start >= sel.End {
			return false
		}
		lo := max(0, sel.Start-start)
		hi := min(len(runes), sel.End-start)
		b.WriteString(string(runes[lo:hi]))
		return true
	})
	return b.String()
}

// findAncestorTag walks the ancestor chain of the selection's common
// ancestor up to (but not past) the nearest block container and returns the
// first element carrying tag, or nil.
func findAncestorTag(root *html.Node, sel Selection, tag string) *html.Node {
	startNode, _, ok := locate(root, sel.Start)
	if !ok {
		return nil
	}
	endNode, _, ok := locate(root, sel.End-1)
	if !ok {
		endNode = startNode
	}
	cur := commonAncestor(startNode, endNode, root)
	for cur != nil && cur != root {
		if cur.Type == html.ElementNode {
			if blockTags[cur.Data] {
				return nil
			}
			if cur.Data == tag {
				return cur
			}
		}
		cur = cur.Parent
	}
	return nil
}

// commonAncestor returns the deepest node containing both a and b.
func commonAncestor(a, b, root *html.Node) *html.Node {
	seen := map[*html.Node]bool{}
	for n := a; n != nil; n = n.Parent {
		seen[n] = true
		if n == root {
			break
		}
	}
	for n := b; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return root
}

// nearestBlock climbs from n to the closest block container under root.
func nearestBlock(n, root *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return root
		}
		if cur.Type == html.ElementNode && blockTags[cur.Data] {
			return cur
		}
	}
	return root
}

// unwrap replaces an element with its children.
func unwrap(el *html.Node) {
	parent := el.Parent
	if parent == nil {
		return
	}
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		parent.InsertBefore(c, el)
		c = next
	}
	parent.RemoveChild(el)
}

// replaceSelection deletes the selected range and inserts el, carrying the
// selection's plain text, at the selection start. Nested markup inside the
// selection collapses to text, matching the editor's replace-on-wrap rule.
func replaceSelection(root *html.Node, sel Selection, el *html.Node) error {
	text := selectedText(root, sel)
	if text == "" {
		return nil
	}
	el.AppendChild(&html.Node{Type: html.TextNode, Data: text})

	deleteRange(root, sel)
	insertAt(root, sel.Start, el)
	return nil
}

// deleteRange removes the runes covered by sel from every overlapping text
// node, then prunes inline wrappers the deletion emptied.
func deleteRange(root *html.Node, sel Selection) {
	var affected []*html.Node
	walkText(root, func(n *html.Node, start int) bool {
		runes := []rune(n.Data)
		end := start + len(runes)
		if end <= sel.Start {
			return true
		}
		if start >= sel.End {
			return false
		}
		lo := max(0, sel.Start-start)
		hi := min(len(runes), sel.End-start)
		n.Data = string(runes[:lo]) + string(runes[hi:])
		affected = append(affected, n)
		return true
	})

	for _, n := range affected {
		parent := n.Parent
		if n.Data == "" && parent != nil {
			parent.RemoveChild(n)
		}
		pruneEmpty(parent, root)
	}
}

// pruneEmpty removes inline wrapper elements left without content,
// cascading upward until a block container or non-empty node.
func pruneEmpty(n, root *html.Node) {
	for n != nil && n != root {
		if n.Type != html.ElementNode || !pruneableTags[n.Data] || n.FirstChild != nil {
			return
		}
		parent := n.Parent
		if parent == nil {
			return
		}
		parent.RemoveChild(n)
		n = parent
	}
}

// insertAt places el at the global rune offset pos, splitting the text node
// at that position when necessary.
func insertAt(root *html.Node, pos int, el *html.Node) {
	node, local, found := locate(root, pos)
	if !found {
		// Position is at or past the end of all text: append to the last
		// block, or to the root itself.
		target := root
		if last := root.LastChild; last != nil && last.Type == html.ElementNode && blockTags[last.Data] {
			target = last
		}
		target.AppendChild(el)
		return
	}

	parent := node.Parent
	runes := []rune(node.Data)
	if local == 0 {
		parent.InsertBefore(el, node)
		return
	}
	before := string(runes[:local])
	after := string(runes[local:])
	node.Data = before
	var anchor *html.Node // node el is inserted before; nil appends
	anchor = node.NextSibling
	if anchor != nil {
		parent.InsertBefore(el, anchor)
	} else {
		parent.AppendChild(el)
	}
	if after != "" {
		tail := &html.Node{Type: html.TextNode, Data: after}
		if el.NextSibling != nil {
			parent.InsertBefore(tail, el.NextSibling)
		} else {
			parent.AppendChild(tail)
		}
	}
}
