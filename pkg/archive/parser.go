package archive

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/lepdl/pkg/domain"
)

// ErrNoPosts is returned when the archive page has no post-like blocks at all
var ErrNoPosts = errors.New("no posts found in archive page")

// Result is the outcome of parsing one archive page
type Result struct {
	Episodes  []domain.Episode // source order
	Anomalies []domain.Anomaly
	Posts     int // post-like blocks found, including skipped ones
}

// Parser runs the extract, classify and normalize stages over archive markup
type Parser struct {
	classifier *Classifier
	normalizer *Normalizer
}

// NewParser makes a parser from rules and normalizer settings
func NewParser(rules Rules, cfg NormalizerConfig) (*Parser, error) {
	c, err := NewClassifier(rules)
	if err != nil {
		return nil, fmt.Errorf("make classifier: %w", err)
	}
	return &Parser{classifier: c, normalizer: NewNormalizer(cfg, c.Repair)}, nil
}

// Parse converts archive markup to episodes. Parsing is deterministic,
// the same markup always gives the same result.
func (p *Parser) Parse(markup []byte) (Result, error) {
	ext, err := NewExtractor(bytes.NewReader(markup), p.classifier.Repair)
	if err != nil {
		return Result{}, err
	}

	var posts []ClassifiedPost
	for post := range ext.Posts() {
		links := p.classifier.Classify(post.Links)
		for _, l := range links {
			if l.Repaired && l.Kind != domain.LinkIgnorable {
				lgr.Printf("[DEBUG] repaired link %s in post #%d", l.URL, post.Position)
			}
		}
		posts = append(posts, ClassifiedPost{Post: post, Links: links})
	}

	res := Result{Posts: len(posts) + len(ext.Anomalies()), Anomalies: ext.Anomalies()}
	if res.Posts == 0 {
		return Result{}, ErrNoPosts
	}

	episodes, anomalies := p.normalizer.Normalize(posts)
	res.Episodes = episodes
	res.Anomalies = append(res.Anomalies, anomalies...)
	lgr.Printf("[DEBUG] parsed %d posts into %d episodes, %d anomalies", res.Posts, len(res.Episodes), len(res.Anomalies))
	return res, nil
}
