// Package extract pulls preview metadata out of HTML pages.
package extract

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/truescope/internal/model"
)

// Metadata parses an HTML document and returns its page preview.
// Open Graph tags win; <title> and meta description fill gaps. Each field
// is found independently, whitespace-collapsed and capped at
// model.MetadataFieldMax characters. A relative og:image is resolved
// against base when base is non-nil.
func Metadata(r io.Reader, base *url.URL) (model.Metadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return model.Metadata{}, err
	}

	var (
		og        = make(map[string]string, 4)
		titleText string
		metaDesc  string
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if titleText == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					titleText = n.FirstChild.Data
				}
			case "meta":
				key, content := metaPair(n)
				switch {
				case strings.HasPrefix(key, "og:"):
					if _, seen := og[key]; !seen && strings.TrimSpace(content) != "" {
						og[key] = content
					}
				case key == "description" && metaDesc == "":
					metaDesc = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	m := model.Metadata{
		Title:       clean(firstNonEmpty(og["og:title"], titleText)),
		Description: clean(firstNonEmpty(og["og:description"], metaDesc)),
		Image:       resolve(base, clean(og["og:image"])),
		SiteName:    clean(og["og:site_name"]),
	}
	return m.Truncated(), nil
}

// metaPair returns the lowercased property (or name) of a <meta> tag and its content
func metaPair(n *html.Node) (key, content string) {
	var property, name string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property":
			property = a.Val
		case "name":
			name = a.Val
		case "content":
			content = a.Val
		}
	}
	key = property
	if key == "" {
		key = name
	}
	return strings.ToLower(strings.TrimSpace(key)), content
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return base.ResolveReference(u).String()
}
