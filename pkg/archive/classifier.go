package archive

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/umputun/lepdl/pkg/domain"
)

// Rules is the data table driving link classification and repair
type Rules struct {
	ReserveHosts      []string          `yaml:"reserve_hosts" json:"reserve_hosts" jsonschema:"description=hosts of the reserve audio mirror (subdomains match)"`
	AudioExtensions   []string          `yaml:"audio_extensions" json:"audio_extensions" jsonschema:"description=file extensions treated as audio"`
	TranscriptMarkers []string          `yaml:"transcript_markers" json:"transcript_markers" jsonschema:"description=markers of transcript links in path or anchor text"`
	Ignore            []string          `yaml:"ignore" json:"ignore" jsonschema:"description=regular expressions of links never used as media"`
	Substitutions     map[string]string `yaml:"substitutions" json:"substitutions" jsonschema:"description=exact url replacements (short links)"`
	HostFixes         map[string]string `yaml:"host_fixes" json:"host_fixes" jsonschema:"description=misspelled host replacements"`
}

// DefaultRules returns rules for the teacherluke.co.uk archive
func DefaultRules() Rules {
	return Rules{
		ReserveHosts:      []string{"hotenov.com"},
		AudioExtensions:   []string{".mp3", ".m4a", ".ogg", ".wav", ".aac"},
		TranscriptMarkers: []string{"transcript"},
		Ignore: []string{
			`^https?://wp\.me/P4IuUx-82H$`,
			`audioboom\.com/boos/(2794795|3727124)`,
			`/wp-content/uploads/.+\.mp3$`,
		},
		Substitutions: map[string]string{
			"http://wp.me/p4IuUx-7PL": "https://teacherluke.co.uk/2017/06/20/460-catching-up-with-amber-paul-6-feat-sarah-donnelly/",
			"http://wp.me/p4IuUx-7C6": "https://teacherluke.co.uk/2017/04/25/444-the-rick-thompson-report-snap-general-election-2017/",
			"http://wp.me/p4IuUx-7C4": "https://teacherluke.co.uk/2017/04/21/443-the-trip-to-japan-part-2/",
			"http://wp.me/p4IuUx-7BQ": "https://teacherluke.co.uk/2017/04/21/442-the-trip-to-japan-part-1/",
			"http://wp.me/p4IuUx-7BO": "https://teacherluke.co.uk/2017/04/18/441-andy-johnson-at-the-iatefl-conference/",
			"http://wp.me/p4IuUx-7Av": "https://teacherluke.co.uk/2017/03/28/436-the-return-of-the-lying-game-with-amber-paul-video/",
			"http://wp.me/p4IuUx-7zK": "https://teacherluke.co.uk/2017/03/26/i-was-interviewed-on-my-fluent-podcast-with-daniel-goodson/",
			"http://wp.me/p4IuUx-7sg": "https://teacherluke.co.uk/2017/01/10/415-with-the-family-part-3-more-encounters-with-famous-people/",
			"https://wp.me/p4IuUx-29": "https://teacherluke.co.uk/2011/10/11/notting-hill-carnival-video-frustration-out-takes/",
		},
		HostFixes: map[string]string{
			"teacherluke.co.ukm": "teacherluke.co.uk",
		},
	}
}

// Classifier assigns a kind to every link of a post. It holds compiled rules only
// and is safe for concurrent use.
type Classifier struct {
	rules  Rules
	ignore []*regexp.Regexp
	audio  map[string]bool
}

// NewClassifier compiles the rules, failing on a bad ignore pattern
func NewClassifier(rules Rules) (*Classifier, error) {
	c := &Classifier{rules: rules, audio: make(map[string]bool, len(rules.AudioExtensions))}
	for _, p := range rules.Ignore {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile ignore pattern %q: %w", p, err)
		}
		c.ignore = append(c.ignore, re)
	}
	for _, ext := range rules.AudioExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.audio[ext] = true
	}
	return c, nil
}

// Classify maps links to classified links, preserving order
func (c *Classifier) Classify(links []domain.Link) []domain.ClassifiedLink {
	res := make([]domain.ClassifiedLink, 0, len(links))
	for i, l := range links {
		u, kind, repaired := c.ClassifyURL(l.URL, l.Text)
		res = append(res, domain.ClassifiedLink{URL: u, Text: l.Text, Kind: kind, Index: i, Repaired: repaired})
	}
	return res
}

// Repair applies the repair rules to a raw url: trimming, short-link substitution,
// protocol-relative and misspelled host fixes. Unparseable input is returned trimmed.
func (c *Classifier) Repair(raw string) string {
	fixed, _ := c.repair(raw)
	return fixed
}

func (c *Classifier) repair(raw string) (fixed string, u *url.URL) {
	fixed = strings.TrimSpace(raw)
	if sub, ok := c.rules.Substitutions[fixed]; ok {
		fixed = sub
	}
	if strings.HasPrefix(fixed, "//") {
		fixed = "https:" + fixed
	}
	u, err := url.Parse(fixed)
	if err != nil {
		return fixed, nil
	}
	if host, ok := c.rules.HostFixes[strings.ToLower(u.Host)]; ok {
		u.Host = host
		fixed = u.String()
	}
	return fixed, u
}

// ClassifyURL repairs a single url and returns it with its kind.
// Unusable input is reported as ignorable, never as an error.
func (c *Classifier) ClassifyURL(raw, text string) (fixed string, kind domain.LinkKind, repaired bool) {
	fixed, u := c.repair(raw)
	repaired = fixed != raw
	if fixed == "" || strings.HasPrefix(fixed, "#") || u == nil {
		return fixed, domain.LinkIgnorable, repaired
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fixed, domain.LinkIgnorable, repaired
	}

	for _, re := range c.ignore {
		if re.MatchString(fixed) {
			return fixed, domain.LinkIgnorable, repaired
		}
	}

	p := strings.ToLower(u.Path)
	ext := path.Ext(p)
	switch {
	case ext == ".pdf":
		return fixed, domain.LinkPDF, repaired
	case c.audio[ext] && c.isReserve(u.Hostname()):
		return fixed, domain.LinkReserveAudio, repaired
	case c.audio[ext]:
		return fixed, domain.LinkPrimaryAudio, repaired
	case c.isTranscript(p, text):
		return fixed, domain.LinkPDF, repaired
	}
	return fixed, domain.LinkIgnorable, repaired
}

func (c *Classifier) isReserve(host string) bool {
	host = strings.ToLower(host)
	for _, h := range c.rules.ReserveHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (c *Classifier) isTranscript(urlPath, text string) bool {
	text = strings.ToLower(text)
	for _, m := range c.rules.TranscriptMarkers {
		m = strings.ToLower(m)
		if m == "" {
			continue
		}
		if strings.Contains(urlPath, m) || strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Media is the effective set of downloadable links of a post
type Media struct {
	Audio   string
	Reserve string
	PDF     string
}

// HasAudio reports whether any audio link is known
func (m Media) HasAudio() bool { return m.Audio != "" || m.Reserve != "" }

// Resolve picks the first link of each kind. A real .pdf file wins over a transcript page.
func Resolve(links []domain.ClassifiedLink) Media {
	var m Media
	var transcript string
	for _, l := range links {
		switch l.Kind {
		case domain.LinkPrimaryAudio:
			if m.Audio == "" {
				m.Audio = l.URL
			}
		case domain.LinkReserveAudio:
			if m.Reserve == "" {
				m.Reserve = l.URL
			}
		case domain.LinkPDF:
			if m.PDF == "" && isPDFFile(l.URL) {
				m.PDF = l.URL
			}
			if transcript == "" {
				transcript = l.URL
			}
		}
	}
	if m.PDF == "" {
		m.PDF = transcript
	}
	return m
}

func isPDFFile(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(parsed.Path), ".pdf")
}
