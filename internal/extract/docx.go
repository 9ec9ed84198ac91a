package extract

import (
	"archive/zip"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	// wpEnd marks paragraph boundaries.
	wpEnd = regexp.MustCompile(`</w:p>`)
	// overrideTag matches one Override element of [Content_Types].xml.
	overrideTag = regexp.MustCompile(`<Override\s[^>]*>`)
	partNameRe  = regexp.MustCompile(`PartName="([^"]+)"`)
)

// findDocxMainDocumentPath reads the main document part name from [Content_Types].xml,
// whatever the attribute order. Returns "" if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	f := findZipEntry(zr, contentTypesPath)
	if f == nil {
		return ""
	}
	data, err := readZipEntry(f)
	if err != nil {
		return ""
	}
	for _, o := range overrideTag.FindAllString(string(data), -1) {
		if !strings.Contains(o, `ContentType="`+docxMainContentType+`"`) {
			continue
		}
		if m := partNameRe.FindStringSubmatch(o); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

// extractDOCX returns the text of the main document part. Runs within a
// paragraph are concatenated and paragraphs are separated by blank lines so
// the chunker sees paragraph boundaries. lu4p/cat is not used because its
// paragraph regex misses <w:p> elements that carry attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	f := findZipEntry(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	docXML, err := readZipEntry(f)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var paragraphs []string
	for _, para := range wpEnd.Split(string(docXML), -1) {
		var b strings.Builder
		for _, m := range wtTag.FindAllStringSubmatch(para, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
