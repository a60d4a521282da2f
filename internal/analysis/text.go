package analysis

import (
	"bytes"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

type documentKind int

const (
	kindUnknown documentKind = iota
	kindPDF
	kindHTML
	kindText
)

func detectKind(c *Content, fileName string) documentKind {
	if bytes.HasPrefix(c.Body, []byte("%PDF-")) {
		return kindPDF
	}

	mediaType, _, _ := mime.ParseMediaType(c.ContentType)
	switch {
	case mediaType == "application/pdf":
		return kindPDF
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return kindHTML
	case strings.HasPrefix(mediaType, "text/"):
		return kindText
	}

	switch strings.ToLower(path.Ext(fileName)) {
	case ".pdf":
		return kindPDF
	case ".html", ".htm":
		return kindHTML
	case ".txt", ".md":
		return kindText
	}
	return kindUnknown
}

// ExtractText converts fetched content to whitespace-normalised plain text.
func ExtractText(c *Content, fileName string) (string, error) {
	var (
		text string
		err  error
	)

	switch detectKind(c, fileName) {
	case kindPDF:
		text, err = pdfText(c.Body)
	case kindHTML:
		text, err = htmlText(c.Body)
	case kindText:
		text = string(c.Body)
	default:
		return "", fmt.Errorf("unsupported content type %q", c.ContentType)
	}
	if err != nil {
		return "", err
	}

	return strings.Join(strings.Fields(text), " "), nil
}

func pdfText(body []byte) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

func htmlText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("script, style, nav, header, footer, noscript, iframe").Remove()

	return doc.Find("body").Text(), nil
}
