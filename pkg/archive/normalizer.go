package archive

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/umputun/lepdl/pkg/domain"
)

// dateLayouts are the date formats seen on the archive host, tried in order
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02.01.2006",
	"2006/01/02",
}

var (
	titleNumber  = regexp.MustCompile(`(?i)^(?:episode|ep\.?)?\s*#?(\d{1,5})(?:\D|$)`)
	invalidChars = regexp.MustCompile(`[@,"^:;*|\\/?><=]`)
)

// ClassifiedPost is a raw post together with its classified links
type ClassifiedPost struct {
	Post  domain.RawPost
	Links []domain.ClassifiedLink
}

// NormalizerConfig defines normalizer parameters
type NormalizerConfig struct {
	PDFStorageURL string // base url of pdf mirror, used for posts without a pdf link
	NewestFirst   bool   // archive lists posts newest first
}

// Normalizer turns classified posts into episodes and numbers them
type Normalizer struct {
	cfg    NormalizerConfig
	policy *bluemonday.Policy
	repair func(string) string
}

// NewNormalizer makes a normalizer. The optional repair func is applied to permalinks.
func NewNormalizer(cfg NormalizerConfig, repair func(string) string) *Normalizer {
	if repair == nil {
		repair = strings.TrimSpace
	}
	return &Normalizer{cfg: cfg, policy: bluemonday.StrictPolicy(), repair: repair}
}

// candidate is a post accepted for numbering
type candidate struct {
	ep       domain.Episode
	explicit int // number from title, 0 if none
	position int
	order    int // index in source order
}

// Normalize maps posts to episodes in source order. Posts that can't become an episode
// are dropped and reported as anomalies, numbering happens over the whole batch.
func (n *Normalizer) Normalize(posts []ClassifiedPost) ([]domain.Episode, []domain.Anomaly) {
	var anomalies []domain.Anomaly
	cands := make([]*candidate, 0, len(posts))
	for _, p := range posts {
		c, reason := n.candidate(p)
		if reason != "" {
			anomalies = append(anomalies, domain.Anomaly{Position: p.Post.Position, Title: n.CleanTitle(p.Post.Title), Reason: reason})
			continue
		}
		c.order = len(cands)
		cands = append(cands, c)
	}

	anomalies = append(anomalies, n.number(cands)...)

	res := make([]domain.Episode, 0, len(cands))
	for _, c := range cands {
		res = append(res, c.ep)
	}
	return res, anomalies
}

// candidate builds an unnumbered episode, a non-empty reason means the post is dropped
func (n *Normalizer) candidate(p ClassifiedPost) (*candidate, string) {
	title := n.CleanTitle(p.Post.Title)
	if title == "" {
		return nil, "empty title"
	}
	date, err := ParseHostDate(p.Post.DateString)
	if err != nil {
		return nil, fmt.Sprintf("unparseable date %q", p.Post.DateString)
	}

	media := Resolve(p.Links)
	ep := domain.Episode{
		Date:            date,
		Title:           title,
		AudioURL:        media.Audio,
		ReserveAudioURL: media.Reserve,
		PDFURL:          media.PDF,
		PostURL:         n.repair(p.Post.Permalink),
		FileName:        FileName(date, title),
	}
	if ep.PDFURL == "" && n.cfg.PDFStorageURL != "" {
		ep.PDFURL = n.cfg.PDFStorageURL + url.PathEscape(ep.FileName) + ".pdf"
	}
	if !ep.HasMedia() {
		return nil, "no audio or pdf links"
	}

	c := &candidate{ep: ep, position: p.Post.Position}
	if media.HasAudio() {
		c.explicit, _ = TitleNumber(title)
	}
	return c, ""
}

// number assigns episode numbers walking the batch from the oldest post.
// Text-only posts stay 0, audio posts without a title number follow their predecessor,
// and a same-date post that doesn't advance the number gets predecessor+1.
func (n *Normalizer) number(cands []*candidate) (anomalies []domain.Anomaly) {
	chrono := make([]*candidate, len(cands))
	copy(chrono, cands)
	sort.SliceStable(chrono, func(i, j int) bool {
		a, b := chrono[i], chrono[j]
		if c := a.ep.Date.Compare(b.ep.Date); c != 0 {
			return c < 0
		}
		if n.cfg.NewestFirst {
			return a.order > b.order
		}
		return a.order < b.order
	})

	var prev *candidate
	for _, c := range chrono {
		if !c.ep.HasAudio() {
			c.ep.Number = 0
			continue
		}
		num := c.explicit
		if num == 0 {
			num = 1
			if prev != nil {
				num = prev.ep.Number + 1
			}
		}
		if prev != nil && num <= prev.ep.Number {
			if prev.ep.Date == c.ep.Date {
				num = prev.ep.Number + 1
			} else {
				anomalies = append(anomalies, domain.Anomaly{Position: c.position, Title: c.ep.Title,
					Reason: fmt.Sprintf("episode number %d is not greater than %d of %s", num, prev.ep.Number, prev.ep.Date)})
			}
		}
		c.ep.Number = num
		if prev == nil || num >= prev.ep.Number {
			prev = c
		}
	}
	return anomalies
}

// CleanTitle strips markup, unescapes entities, collapses whitespace and normalizes to NFC
func (n *Normalizer) CleanTitle(raw string) string {
	s := html.UnescapeString(n.policy.Sanitize(raw))
	return norm.NFC.String(collapseSpaces(s))
}

// TitleNumber extracts the leading episode number of a title
func TitleNumber(title string) (int, bool) {
	m := titleNumber.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 0, false
	}
	num, err := strconv.Atoi(m[1])
	if err != nil || num == 0 {
		return 0, false
	}
	return num, true
}

// ParseHostDate parses a post date in any of the archive host formats
func ParseHostDate(s string) (domain.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return domain.Date{}, fmt.Errorf("unknown date format %q", s)
}

// FileName builds the "[YYYY-MM-DD] # title" base name with characters unsafe for
// file systems replaced by "_"
func FileName(date domain.Date, title string) string {
	name := fmt.Sprintf("[%s] # %s", date, title)
	name = invalidChars.ReplaceAllString(name, "_")
	name = norm.NFC.String(collapseSpaces(name))
	return strings.TrimRight(name, ". ")
}
