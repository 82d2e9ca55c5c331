package logo

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxHTMLSize はロゴ検出のために読み込むHTMLの最大サイズ（512KB）。
const maxHTMLSize = 512 * 1024

// iconRels はロゴ候補として認識するlink要素のrel値。
var iconRels = map[string]bool{
	"icon":                         true,
	"shortcut icon":                true,
	"apple-touch-icon":             true,
	"apple-touch-icon-precomposed": true,
}

// ParseIconLinksFromHTML はHTMLのheadタグからアイコンリンクを解析・検出する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
// 検出順はHTML内の出現順を維持する。
func ParseIconLinksFromHTML(htmlBody []byte, baseURL string) []string {
	var candidates []string

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return candidates
			}

			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			// link要素の属性を解析
			var rel, href string
			for {
				key, val, more := tokenizer.TagAttr()
				k := strings.ToLower(string(key))
				v := string(val)
				switch k {
				case "rel":
					rel = strings.ToLower(strings.TrimSpace(v))
				case "href":
					href = v
				}
				if !more {
					break
				}
			}

			if !iconRels[rel] || href == "" {
				continue
			}

			// 相対URLを絶対URLに解決
			resolved := resolveURL(baseU, href)
			if resolved == "" {
				continue
			}
			candidates = append(candidates, resolved)

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
