package extractor

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/models"
)

// blockTags approximates the block-level display set without a rendering
// engine. Used only by the static fallback; the browser path asks the
// real computed style.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dd": true, "dt": true, "fieldset": true,
	"figure": true, "figcaption": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// StaticExtractor extracts fragment text from the raw HTML of a URL
// without a browser. It cannot replay interactions and serves only
// interaction-free monitors when the headless browser is disabled.
type StaticExtractor struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewStaticExtractor creates a new StaticExtractor
func NewStaticExtractor(httpClient *http.Client, logger zerolog.Logger) *StaticExtractor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &StaticExtractor{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "StaticExtractor").Logger(),
	}
}

// Extract fetches the URL and extracts normalized text for the selector.
// Monitors carrying interactions are rejected: there is nothing to replay
// them against.
func (se *StaticExtractor) Extract(ctx context.Context, url string, interactions []models.Interaction, selector string) (string, error) {
	if len(interactions) > 0 {
		return "", common.NewExtractionError(url, 0,
			common.NewError("static extraction cannot replay interactions"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", common.NewExtractionError(url, 1, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; WebPursuer/1.0)")

	resp, err := se.httpClient.Do(req)
	if err != nil {
		return "", common.NewExtractionError(url, 1, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", common.NewExtractionError(url, 1,
			common.NewError("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", common.NewExtractionError(url, 1, err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", nil
	}

	text := NormalizeText(nodeText(selection.Nodes[0]))
	if text == "" {
		return "", common.NewExtractionError(url, 1, nil)
	}
	return text, nil
}

// nodeText mirrors the injected extraction script's policy as closely as
// static markup allows: skipped tags, hidden-attribute elements, form
// control values, br newlines, block/inline joining.
func nodeText(node *html.Node) string {
	switch node.Type {
	case html.TextNode:
		return node.Data
	case html.ElementNode:
		// handled below
	default:
		return ""
	}

	tag := strings.ToLower(node.Data)
	switch tag {
	case "script", "style", "noscript":
		return ""
	}

	// Hidden elements contribute nothing, form controls included. Mirrors
	// the injected script, which checks computed style before the tag.
	if isHiddenByAttributes(node) {
		return ""
	}

	switch tag {
	case "br":
		return "\n"
	case "input":
		inputType := strings.ToLower(attrValue(node, "type"))
		if inputType == "hidden" || inputType == "submit" || inputType == "button" || inputType == "image" {
			return ""
		}
		return attrValue(node, "value")
	case "textarea":
		return textContent(node)
	case "select":
		return selectedOptionLabel(node)
	}

	var parts []string
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if piece := nodeText(child); piece != "" {
			parts = append(parts, piece)
		}
	}

	if blockTags[tag] {
		return "\n" + strings.Join(parts, "\n") + "\n"
	}
	return strings.Join(parts, " ")
}

func isHiddenByAttributes(node *html.Node) bool {
	if attrValue(node, "hidden") != "" || hasAttr(node, "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(attrValue(node, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func selectedOptionLabel(node *html.Node) string {
	var first, selected *html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || !strings.EqualFold(child.Data, "option") {
			continue
		}
		if first == nil {
			first = child
		}
		if hasAttr(child, "selected") {
			selected = child
			break
		}
	}
	if selected == nil {
		selected = first
	}
	if selected == nil {
		return ""
	}
	if label := attrValue(selected, "label"); label != "" {
		return label
	}
	return strings.TrimSpace(textContent(selected))
}

func textContent(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return sb.String()
}

func attrValue(node *html.Node, name string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(node *html.Node, name string) bool {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return true
		}
	}
	return false
}
