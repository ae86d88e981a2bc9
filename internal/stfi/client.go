// Package stfi talks to the simpletoolsforinvestors.eu site: it resolves the
// EOD yield CSV link, reads the yield-table directory page, and fetches
// per-bond definition documents.
package stfi

import (
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quantella/bondsync/internal/config"
	"github.com/quantella/bondsync/internal/fetcher"
)

// Client wraps a Fetcher with the site's page layout knowledge.
type Client struct {
	f   fetcher.Fetcher
	cfg config.SourceConfig
}

// NewClient creates a Client for the configured source site.
func NewClient(f fetcher.Fetcher, cfg config.SourceConfig) *Client {
	return &Client{f: f, cfg: cfg}
}

var (
	rowRe  = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellRe = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	hrefRe = regexp.MustCompile(`(?is)<a[^>]+href\s*=\s*["']([^"']+)["']`)
	tagRe  = regexp.MustCompile(`<[^>]+>`)
)

// cellText strips tags and entities from a table cell and trims whitespace.
func cellText(cell string) string {
	text := tagRe.ReplaceAllString(cell, " ")
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(strings.Join(strings.Fields(r.Replace(text)), " "))
}

// ResolveCSVLink scans the documents page for the two-cell row whose label
// matches the configured marker and returns the absolute URL of its link.
func (c *Client) ResolveCSVLink(ctx context.Context) (string, error) {
	body, err := c.f.Download(ctx, c.cfg.DocumentsURL)
	if err != nil {
		return "", eris.Wrap(err, "stfi: fetch documents page")
	}
	defer body.Close() //nolint:errcheck

	page, err := io.ReadAll(body)
	if err != nil {
		return "", eris.Wrap(err, "stfi: read documents page")
	}

	base, err := url.Parse(c.cfg.DocumentsURL)
	if err != nil {
		return "", eris.Wrap(err, "stfi: parse documents url")
	}

	for _, row := range rowRe.FindAllStringSubmatch(string(page), -1) {
		cells := cellRe.FindAllStringSubmatch(row[1], -1)
		if len(cells) != 2 {
			continue
		}
		if !strings.Contains(cellText(cells[0][1]), c.cfg.CSVMarker) {
			continue
		}
		href := hrefRe.FindStringSubmatch(cells[1][1])
		if href == nil {
			continue
		}
		ref, err := url.Parse(href[1])
		if err != nil {
			continue
		}
		link := base.ResolveReference(ref).String()
		zap.L().Info("resolved CSV link", zap.String("url", link))
		return link, nil
	}

	return "", eris.New("stfi: CSV link not found on documents page")
}

// DownloadTable fetches the resolved CSV and returns its body.
func (c *Client) DownloadTable(ctx context.Context, csvURL string) (io.ReadCloser, error) {
	body, err := c.f.Download(ctx, csvURL)
	if err != nil {
		return nil, eris.Wrap(err, "stfi: download CSV")
	}
	return body, nil
}
