package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseNode(t *testing.T, markup string) Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	return wrap(doc)
}

func TestWalk_DocumentOrder(t *testing.T) {
	root := parseNode(t, `<div><p><a href="x">a</a><b>b</b></p><span>c</span></div>`)

	var tags []string
	for n := range Walk(root) {
		if tag := n.Tag(); tag != "" {
			tags = append(tags, tag)
		}
	}
	assert.Equal(t, []string{"html", "head", "body", "div", "p", "a", "b", "span"}, tags)
}

func TestWalk_StopsEarly(t *testing.T) {
	root := parseNode(t, `<ul><li>1</li><li>2</li><li>3</li></ul>`)

	count := 0
	for n := range Walk(root) {
		if n.Tag() == "li" {
			count++
			break
		}
	}
	assert.Equal(t, 1, count)
}

func TestWalk_Nil(t *testing.T) {
	for range Walk(nil) {
		t.Fatal("nothing expected")
	}
}

func TestOutermost(t *testing.T) {
	root := parseNode(t, `<article id="a1"><article id="inner"></article></article><div><article id="a2"></article></div>`)

	var ids []string
	for n := range Outermost(root, func(n Node) bool { return n.Tag() == "article" }) {
		id, _ := n.Attr("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"a1", "a2"}, ids)

	// the sequence is reusable
	again := 0
	for range Outermost(root, func(n Node) bool { return n.Tag() == "article" }) {
		again++
	}
	assert.Equal(t, 2, again)
}

func TestHasClass(t *testing.T) {
	root := parseNode(t, `<div class="post  hentry type-post"></div>`)
	var div Node
	for n := range Walk(root) {
		if n.Tag() == "div" {
			div = n
		}
	}
	require.NotNil(t, div)
	assert.True(t, HasClass(div, "hentry"))
	assert.True(t, HasClass(div, "post"))
	assert.False(t, HasClass(div, "entry"))

	attr, ok := div.Attr("CLASS")
	assert.True(t, ok)
	assert.Equal(t, "post  hentry type-post", attr)
}
