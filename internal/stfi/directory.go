package stfi

import (
	"context"
	"io"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DirectoryRow is one row of the yield-table page: the first cell's text
// (the ISIN) plus every link target found in the row.
type DirectoryRow struct {
	Label string
	Hrefs []string
}

// FetchDirectory downloads the yield-table page and parses its rows.
func (c *Client) FetchDirectory(ctx context.Context) ([]DirectoryRow, error) {
	body, err := c.f.Download(ctx, c.cfg.DirectoryURL)
	if err != nil {
		return nil, eris.Wrap(err, "stfi: fetch directory page")
	}
	defer body.Close() //nolint:errcheck

	page, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "stfi: read directory page")
	}

	var rows []DirectoryRow
	for _, row := range rowRe.FindAllStringSubmatch(string(page), -1) {
		cells := cellRe.FindAllStringSubmatch(row[1], -1)
		if len(cells) == 0 {
			continue
		}
		dr := DirectoryRow{Label: cellText(cells[0][1])}
		for _, cell := range cells {
			for _, href := range hrefRe.FindAllStringSubmatch(cell[1], -1) {
				dr.Hrefs = append(dr.Hrefs, href[1])
			}
		}
		rows = append(rows, dr)
	}

	zap.L().Info("parsed directory page", zap.Int("rows", len(rows)))
	return rows, nil
}

var bondIDRe = regexp.MustCompile(`bondID=(\d+)`)

// BuildMapping extracts an ISIN to bondID mapping from directory rows. The
// bondID comes from the first link matching the bondID pattern; rows without
// one have no detail page yet and are omitted.
func BuildMapping(rows []DirectoryRow) map[string]string {
	mapping := make(map[string]string)
	for _, row := range rows {
		if row.Label == "" {
			continue
		}
		for _, href := range row.Hrefs {
			if m := bondIDRe.FindStringSubmatch(href); m != nil {
				mapping[row.Label] = m[1]
				break
			}
		}
	}
	return mapping
}
