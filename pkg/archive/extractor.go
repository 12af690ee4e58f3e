package archive

import (
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"

	"github.com/umputun/lepdl/pkg/domain"
)

var (
	bareURL       = xurls.Strict()
	permalinkDate = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)
)

// Extractor turns archive markup into post-like blocks.
// A post is an <article> (or .hentry) element; pages without them are read as a classic
// index where every dated permalink inside div.entry-content is a post.
type Extractor struct {
	root      Node
	repair    func(string) string
	anomalies []domain.Anomaly
	consumed  bool
}

// NewExtractor parses the markup, the html parser repairs broken nesting on its own.
// The optional repair func rewrites links before a date is looked up in them.
func NewExtractor(r io.Reader, repair func(string) string) (*Extractor, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse archive markup: %w", err)
	}
	if repair == nil {
		repair = strings.TrimSpace
	}
	return &Extractor{root: wrap(doc), repair: repair}, nil
}

// Posts returns the posts in source order. The sequence is lazy and single-use,
// ranging over it a second time yields nothing.
func (e *Extractor) Posts() iter.Seq[domain.RawPost] {
	return func(yield func(domain.RawPost) bool) {
		if e.consumed {
			return
		}
		e.consumed = true
		pos := 0
		for block := range e.blocks() {
			post, ok := e.post(block, pos)
			pos++
			if !ok {
				continue
			}
			if !yield(post) {
				return
			}
		}
	}
}

// Anomalies returns posts skipped so far, complete once Posts is drained
func (e *Extractor) Anomalies() []domain.Anomaly {
	return e.anomalies
}

func (e *Extractor) blocks() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		found := false
		for n := range Outermost(e.root, isPostBlock) {
			found = true
			if !yield(n) {
				return
			}
		}
		if found {
			return
		}
		for content := range Outermost(e.root, isEntryContent) {
			for n := range Outermost(content, isAnchor) {
				href, _ := n.Attr("href")
				if !permalinkDate.MatchString(e.repair(href)) {
					continue
				}
				if !yield(n) {
					return
				}
			}
		}
	}
}

func (e *Extractor) post(block Node, pos int) (domain.RawPost, bool) {
	hn, ok := block.(htmlNode)
	if !ok {
		return domain.RawPost{}, false
	}
	sel := goquery.NewDocumentFromNode(hn.n).Selection
	if block.Tag() == "a" {
		return e.indexPost(sel, pos), true
	}

	post := domain.RawPost{Position: pos, Links: blockLinks(sel), Text: collapseSpaces(sel.Text())}
	post.HTML, _ = goquery.OuterHtml(sel)
	var titleText string
	post.Title, titleText, post.Permalink = blockTitle(sel)
	post.DateString = blockDate(sel, e.repair, post.Permalink, post.Links)
	if post.DateString == "" {
		e.anomalies = append(e.anomalies, domain.Anomaly{Position: pos, Title: titleText, Reason: "missing date"})
		return post, false
	}
	return post, true
}

// indexPost makes a post of a single permalink anchor of the classic index,
// the anchor is only yielded when its url carries a date
func (e *Extractor) indexPost(a *goquery.Selection, pos int) domain.RawPost {
	href := strings.TrimSpace(a.AttrOr("href", ""))
	post := domain.RawPost{
		Position:  pos,
		Permalink: href,
		Text:      collapseSpaces(a.Text()),
		Links:     []domain.Link{{URL: href, Text: collapseSpaces(a.Text())}},
	}
	post.Title, _ = a.Html()
	post.HTML, _ = goquery.OuterHtml(a)
	post.DateString = blockDate(a, e.repair, href, nil)
	return post
}

// blockTitle returns title markup, its plain text and the permalink of the block
func blockTitle(sel *goquery.Selection) (markup, text, permalink string) {
	for _, q := range []string{".entry-title", "h1", "h2", "h3"} {
		t := sel.Find(q).First()
		if t.Length() == 0 || strings.TrimSpace(t.Text()) == "" {
			continue
		}
		markup, _ = t.Html()
		permalink = t.Find("a[href]").First().AttrOr("href", "")
		if permalink == "" {
			permalink = t.AttrOr("href", "")
		}
		if permalink == "" {
			permalink = sel.Find("a[rel~=bookmark]").First().AttrOr("href", "")
		}
		return markup, collapseSpaces(t.Text()), strings.TrimSpace(permalink)
	}

	first := sel.Find("a[href]").First()
	if first.Length() == 0 {
		return "", "", ""
	}
	markup, _ = first.Html()
	return markup, collapseSpaces(first.Text()), strings.TrimSpace(first.AttrOr("href", ""))
}

func blockDate(sel *goquery.Selection, repair func(string) string, permalink string, links []domain.Link) string {
	if v, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v := collapseSpaces(sel.Find("time").First().Text()); v != "" {
		return v
	}
	if v := collapseSpaces(sel.Find(".entry-date").First().Text()); v != "" {
		return v
	}

	candidates := make([]string, 0, len(links)+1)
	candidates = append(candidates, permalink)
	for _, l := range links {
		candidates = append(candidates, l.URL)
	}
	for _, c := range candidates {
		if m := permalinkDate.FindStringSubmatch(repair(c)); m != nil {
			return m[1] + "/" + m[2] + "/" + m[3]
		}
	}
	return ""
}

// blockLinks collects anchors in order of appearance, then bare URLs from the text
func blockLinks(sel *goquery.Selection) []domain.Link {
	var links []domain.Link
	seen := map[string]bool{}
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		links = append(links, domain.Link{URL: href, Text: collapseSpaces(a.Text())})
		seen[strings.TrimSpace(href)] = true
	})

	for _, u := range bareURL.FindAllString(sel.Text(), -1) {
		if seen[u] {
			continue
		}
		seen[u] = true
		links = append(links, domain.Link{URL: u})
	}
	return links
}

func isPostBlock(n Node) bool {
	return n.Tag() == "article" || HasClass(n, "hentry")
}

func isEntryContent(n Node) bool {
	return n.Tag() == "div" && HasClass(n, "entry-content")
}

func isAnchor(n Node) bool {
	if n.Tag() != "a" {
		return false
	}
	_, ok := n.Attr("href")
	return ok
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
