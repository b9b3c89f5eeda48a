package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/deusflow/devops-digest/internal/news"
)

const (
	maxPageBytes    = 4 << 20
	minContentRunes = 200
)

// Extractor gets the readable body of an article page.
type Extractor struct {
	client   *http.Client
	maxRunes int
}

func New(timeout time.Duration, maxRunes int) *Extractor {
	return &Extractor{
		client:   &http.Client{Timeout: timeout},
		maxRunes: maxRunes,
	}
}

// ArticleText downloads pageURL and returns its main text, capped.
func (e *Extractor) ArticleText(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("bad url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "devops-digest/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("error reading page: %w", err)
	}

	content := extractReadable(page, parsedURL)
	if len([]rune(content)) < minContentRunes {
		if generic := extractGeneric(page); len([]rune(generic)) > len([]rune(content)) {
			content = generic
		}
	}
	if content == "" {
		return "", fmt.Errorf("can't get content")
	}

	return news.Truncate(content, e.maxRunes), nil
}

var blockTagRe = regexp.MustCompile(`(?i)</?(p|div|br|li|h[1-6]|tr|td)[^>]*>`)

// extractReadable runs the readability algorithm and flattens its HTML.
func extractReadable(page []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil || article.Content == "" {
		return ""
	}

	// Space out block elements so words of adjacent paragraphs do not stick together.
	spaced := blockTagRe.ReplaceAllStringFunc(article.Content, func(tag string) string { return " " + tag + " " })

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaced))
	if err != nil {
		return ""
	}
	return normalizeText(doc.Text())
}

// extractGeneric is universal parser for pages readability cannot handle
func extractGeneric(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	selectors := []string{
		"article p",
		".post-content p",
		".entry-content p",
		".article-body p",
		"main p",
		"#content p",
		"p",
	}

	var best []string
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > len(best) {
			best = paragraphs
		}
		if len(best) >= 3 { // If we find 3 paragraphs, it's enough
			break
		}
	}

	return normalizeText(strings.Join(best, " "))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
