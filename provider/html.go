package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

// Pages larger than this are not release listings.
const htmlPageLimit = 1 << 20

// HTMLPage installs a file linked from an HTML page. A CSS selector
// picks the anchor carrying the download link, so it works for sites
// that publish releases only as a download page.
type HTMLPage struct {
	Client *Client
}

func (p *HTMLPage) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	resp, err := p.Client.Do(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return Ref{}, resolveErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Ref{}, resolveErr(&StatusError{Code: resp.StatusCode, URL: a.URL})
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, htmlPageLimit))
	if err != nil {
		return Ref{}, resolveErr(fmt.Errorf("parse %q: %w", a.URL, err))
	}
	sel, err := cascadia.Compile(a.Selector)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: bad selector %q", servpack.ErrSelectorMatchedNothing, a.Selector)
	}
	node := sel.MatchFirst(doc)
	if node == nil {
		return Ref{}, fmt.Errorf("%w: selector %q matched nothing on %s", servpack.ErrSelectorMatchedNothing, a.Selector, a.URL)
	}
	href := findHref(node)
	if href == "" {
		return Ref{}, fmt.Errorf("%w: selected node on %s has no href", servpack.ErrSelectorMatchedNothing, a.URL)
	}
	dlURL, err := resolveLink(a.URL, href)
	if err != nil {
		return Ref{}, resolveErr(err)
	}
	return Ref{Fingerprint: dlURL, Data: dlURL}, nil
}

// findHref walks the node and its descendants for the first anchor
// href, accepting the matched node itself being the anchor.
func findHref(n *html.Node) string {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				return attr.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findHref(c); href != "" {
			return href
		}
	}
	return ""
}

func resolveLink(page, href string) (string, error) {
	base, err := neturl.Parse(page)
	if err != nil {
		return "", err
	}
	ref, err := neturl.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (p *HTMLPage) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	dlURL, ok := ref.Data.(string)
	if !ok {
		return nil, fmt.Errorf("html: bad ref")
	}
	name, err := urlFileName(a, dlURL)
	if err != nil {
		return nil, err
	}
	fpath, sums, err := p.Client.Download(ctx, dlURL, nil, t, name)
	if err != nil {
		return nil, fetchErr(err)
	}
	res := &servpack.Result{Fingerprint: ref.Fingerprint}
	res.AddFile(fpath, true, sums)
	return res, nil
}

// NeedsUpdate fires when the page starts linking a different URL.
func (p *HTMLPage) NeedsUpdate(ref Ref, cached string) bool {
	return ref.Fingerprint != cached
}
