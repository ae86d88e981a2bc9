package stfi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// FetchDefinition downloads the bond's definition document and returns the
// text of its issueprice element. An absent element returns "" with no
// error: many bonds simply have no issue price published. HTTP failures,
// including 429, propagate as errors for the caller to classify.
func (c *Client) FetchDefinition(ctx context.Context, bondID string) (string, error) {
	url := fmt.Sprintf(c.cfg.DefinitionURL, bondID)
	body, err := c.f.Download(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	price, err := extractIssuePrice(body)
	if err != nil {
		return "", eris.Wrapf(err, "stfi: parse definition for bond %s", bondID)
	}
	return price, nil
}

// extractIssuePrice scans the definition XML for the issueprice element.
// Definition documents are served with legacy charsets, hence the
// charset-aware decoder.
func extractIssuePrice(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	decoder.Strict = false

	inPrice := false
	var text strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", eris.Wrap(err, "xml: read token")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "issueprice") {
				inPrice = true
				text.Reset()
			}
		case xml.CharData:
			if inPrice {
				text.Write(t)
			}
		case xml.EndElement:
			if inPrice && strings.EqualFold(t.Name.Local, "issueprice") {
				return strings.TrimSpace(text.String()), nil
			}
		}
	}
}
