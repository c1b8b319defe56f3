package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reunion_archive/internal/model"
)

func TestNormalizeSVG(t *testing.T) {
	input := `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" width="48px" height="24" onload="alert(1)">
  <script>alert(1)</script>
  <!-- exported by some editor -->
  <path d="M0 0h10v10z" fill="#000000" stroke="red" onclick="x()"/>
  <rect width="5" height="5" fill="none"/>
  <circle r="3" fill="url(#grad)"/>
  <a href="javascript:alert(1)"><text>hi</text></a>
</svg>`

	out, err := normalizeSVG([]byte(input), "#ff6600")
	require.NoError(t, err)
	svg := string(out)

	assert.True(t, strings.HasPrefix(svg, "<svg"), svg)
	assert.Contains(t, svg, `viewBox="0 0 48 24"`)
	assert.NotContains(t, svg, `width="48px"`)
	assert.NotContains(t, svg, "<script")
	assert.NotContains(t, svg, "onload")
	assert.NotContains(t, svg, "onclick")
	assert.NotContains(t, svg, "javascript:")
	assert.NotContains(t, svg, "exported by")
	assert.Contains(t, svg, `fill="#ff6600"`)
	assert.Contains(t, svg, `stroke="#ff6600"`)
	assert.Contains(t, svg, `fill="none"`)
	assert.Contains(t, svg, `fill="url(#grad)"`)
	// Child sizes are not the root's fixed size.
	assert.Contains(t, svg, `width="5"`)
}

func TestNormalizeSVG_KeepsExistingViewBox(t *testing.T) {
	out, err := normalizeSVG([]byte(`<svg viewBox="0 0 100 100" width="10" height="10"><path d="M0 0"/></svg>`), "")
	require.NoError(t, err)

	svg := string(out)
	assert.Contains(t, svg, `viewBox="0 0 100 100"`)
	assert.NotContains(t, svg, `width=`)
	assert.Contains(t, svg, `xmlns="http://www.w3.org/2000/svg"`)
}

func TestNormalizeSVG_NoColorKeepsPaint(t *testing.T) {
	out, err := normalizeSVG([]byte(`<svg><path fill="#123456"/></svg>`), "")
	require.NoError(t, err)
	assert.Contains(t, string(out), `fill="#123456"`)
}

func TestNormalizeSVG_NotSVG(t *testing.T) {
	_, err := normalizeSVG([]byte(`<html><body><p>hello</p></body></html>`), "#000000")
	assert.True(t, errors.Is(err, model.ErrInvalidSVG))
}

func TestNormalizeSVG_StripsScriptURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "set rewrites href",
			input: `<svg><a><set attributeName="href" to="javascript:alert(1)"/><circle r="10"/></a></svg>`,
		},
		{
			name:  "animate rewrites href",
			input: `<svg><a><animate attributeName="href" values="javascript:alert(1)"/><circle r="10"/></a></svg>`,
		},
		{
			name:  "animateTransform and animateMotion",
			input: `<svg><a><animateTransform attributeName="href" values="javascript:alert(1)"/><animateMotion values="javascript:alert(1)"/><circle r="10"/></a></svg>`,
		},
		{
			name:  "entity encoded tab in scheme",
			input: `<svg><a href="jav&#x09;ascript:alert(1)"><circle r="10"/></a></svg>`,
		},
		{
			name:  "control character and upper case",
			input: `<svg><a href=" &#x01;JaVaScRiPt:alert(1)"><circle r="10"/></a></svg>`,
		},
		{
			name:  "xlink href",
			input: `<svg xmlns:xlink="http://www.w3.org/1999/xlink"><a xlink:href="javascript:alert(1)"><circle r="10"/></a></svg>`,
		},
		{
			name:  "vbscript",
			input: `<svg><a href="vbscript:msgbox(1)"><circle r="10"/></a></svg>`,
		},
		{
			name:  "html data url",
			input: `<svg><a href="data:text/html;base64,PHNjcmlwdD5hbGVydCgxKTwvc2NyaXB0Pg=="><circle r="10"/></a></svg>`,
		},
		{
			name:  "svg data url",
			input: `<svg><image href="data:image/svg+xml;base64,PHN2Zz48L3N2Zz4="/></svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := normalizeSVG([]byte(tt.input), "")
			require.NoError(t, err)
			svg := strings.ToLower(string(out))

			assert.NotContains(t, svg, "script:")
			assert.NotContains(t, svg, "<set")
			assert.NotContains(t, svg, "<animate")
			assert.NotContains(t, svg, "data:")
			assert.Contains(t, svg, "<svg")
		})
	}
}

func TestNormalizeSVG_KeepsSafeReferences(t *testing.T) {
	input := `<svg><defs><path id="p" d="M0 0h4v4z"/></defs><use href="#p"/><use href="https://evil.example/x.svg#p"/>` +
		`<image href="data:image/png;base64,iVBORw0KGgo="/><a href="https://reunion.example/about"><circle r="1"/></a></svg>`

	out, err := normalizeSVG([]byte(input), "")
	require.NoError(t, err)
	svg := string(out)

	assert.Contains(t, svg, `href="#p"`)
	assert.NotContains(t, svg, "evil.example")
	assert.Contains(t, svg, `href="data:image/png;base64,iVBORw0KGgo="`)
	assert.Contains(t, svg, `href="https://reunion.example/about"`)
}

func TestIsScriptURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"javascript:alert(1)", true},
		{"  JAVASCRIPT:alert(1)", true},
		{"jav\tascript:alert(1)", true},
		{"java\nscript:alert(1)", true},
		{"java\x00script:alert(1)", true},
		{"vbscript:x", true},
		{"data:text/html,<script>", true},
		{"data:image/svg+xml,<svg/>", true},
		{"data:image/png;base64,AAAA", false},
		{"https://example.com/a", false},
		{"#frag", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isScriptURL(tt.in), "%q", tt.in)
	}
}
