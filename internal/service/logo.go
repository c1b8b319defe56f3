package service

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"reunion_archive/internal/model"
)

const svgNamespace = "http://www.w3.org/2000/svg"

// Elements dropped from uploaded logos together with their subtree.
// Animation elements can rewrite href at runtime, so they go too.
var strippedSVGElements = map[string]bool{
	"script":           true,
	"foreignobject":    true,
	"iframe":           true,
	"style":            true,
	"set":              true,
	"animate":          true,
	"animatemotion":    true,
	"animatetransform": true,
	"handler":          true,
	"listener":         true,
}

// Inline images that may stay as data: URLs.
var allowedDataImages = []string{
	"data:image/png",
	"data:image/jpeg",
	"data:image/gif",
	"data:image/webp",
}

// normalizeSVG parses an uploaded logo, removes anything executable, makes
// the root scalable (viewBox, no fixed size) and paints every fill and stroke
// with themeColor. An empty themeColor keeps the original colors.
func normalizeSVG(data []byte, themeColor string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSVG, err)
	}

	root := findSVGRoot(doc)
	if root == nil {
		return nil, model.ErrInvalidSVG
	}

	sanitizeSVGNode(root, themeColor)
	ensureViewBox(root)
	setAttr(root, "xmlns", svgNamespace)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return buf.Bytes(), nil
}

func findSVGRoot(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Svg {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSVGRoot(c); found != nil {
			return found
		}
	}
	return nil
}

func sanitizeSVGNode(n *html.Node, themeColor string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		switch {
		case strings.HasPrefix(key, "on"):
			continue
		case key == "href" && isScriptURL(a.Val):
			continue
		case key == "href" && strings.ToLower(n.Data) == "use" && !strings.HasPrefix(strings.TrimSpace(a.Val), "#"):
			// <use> may only reference shapes inside the logo itself.
			continue
		case key == "style":
			continue
		case themeColor != "" && (key == "fill" || key == "stroke") && isPaint(a.Val):
			a.Val = themeColor
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && strippedSVGElements[strings.ToLower(c.Data)]) {
			n.RemoveChild(c)
		} else if c.Type == html.ElementNode {
			sanitizeSVGNode(c, themeColor)
		}
		c = next
	}
}

// isPaint reports whether a fill/stroke value paints a color. none, gradients
// and pattern references are left alone.
func isPaint(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v != "" && v != "none" && v != "transparent" && !strings.HasPrefix(v, "url(")
}

// isScriptURL reports whether an href can run code. Browsers drop ASCII
// whitespace and control characters inside the scheme, so they are removed
// before matching.
func isScriptURL(v string) bool {
	v = strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, v))

	switch {
	case strings.HasPrefix(v, "javascript:"), strings.HasPrefix(v, "vbscript:"):
		return true
	case strings.HasPrefix(v, "data:"):
		for _, prefix := range allowedDataImages {
			if strings.HasPrefix(v, prefix+";") || strings.HasPrefix(v, prefix+",") {
				return false
			}
		}
		return true
	}
	return false
}

// ensureViewBox derives a viewBox from width/height when missing, then drops
// the fixed size so the logo scales with its container.
func ensureViewBox(root *html.Node) {
	width, hasW := getAttr(root, "width")
	height, hasH := getAttr(root, "height")
	if _, ok := getAttr(root, "viewBox"); !ok && hasW && hasH {
		w, errW := parseLength(width)
		h, errH := parseLength(height)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			setAttr(root, "viewBox", fmt.Sprintf("0 0 %s %s", formatLength(w), formatLength(h)))
		}
	}
	removeAttr(root, "width")
	removeAttr(root, "height")
}

func parseLength(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
}

func formatLength(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}
