package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// zipOf builds an in-memory zip archive from name/content pairs, in order.
func zipOf(entries ...string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i := 0; i+1 < len(entries); i += 2 {
		fw, _ := w.Create(entries[i])
		_, _ = fw.Write([]byte(entries[i+1]))
	}
	_ = w.Close()
	return buf.Bytes()
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func docxBody(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<w:document ` + wordNS + `><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

// minimalPDF builds a PDF with one Helvetica text line per page.
func minimalPDF(pages ...string) []byte {
	var b bytes.Buffer
	var offsets []int
	obj := func(s string) {
		offsets = append(offsets, b.Len())
		b.WriteString(s)
	}
	b.WriteString("%PDF-1.4\n")
	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), len(pages)))
	obj("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>\nendobj\n", 4+2*i, 5+2*i))
		obj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", 5+2*i, len(stream), stream))
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return b.Bytes()
}

func TestExtractPagesBytes_pdf(t *testing.T) {
	pages, err := NewExtractor().ExtractPagesBytes(minimalPDF("Refunds take five days", "Shipping is free"), ".pdf")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for i, want := range []string{"Refunds take five days", "Shipping is free"} {
		if pages[i].Number != i+1 {
			t.Errorf("page %d number = %d", i, pages[i].Number)
		}
		if !strings.Contains(pages[i].Text, want) {
			t.Errorf("page %d text = %q, want it to contain %q", i+1, pages[i].Text, want)
		}
	}
}

func TestExtractPagesBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractPagesBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestExtractPagesBytes_plain(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		content string
		ext     string
		want    string
	}{
		{"txt", "Hello world\nLine 2", ".txt", "Hello world\nLine 2"},
		{"utf8 md", "caf\xc3\xa9", ".md", "café"},
		{"invalid utf8", "hello\x80world", ".TXT", "hello\uFFFDworld"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := e.ExtractPagesBytes([]byte(tt.content), tt.ext)
			if err != nil {
				t.Fatalf("ExtractPagesBytes: %v", err)
			}
			if len(pages) != 1 || pages[0].Number != 1 || pages[0].Text != tt.want {
				t.Errorf("got %+v", pages)
			}
		})
	}
}

func TestExtractPagesBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().ExtractPagesBytes([]byte("raw"), ".xyz")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractPagesBytes_excelSheetsArePages(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	if _, err := f.NewSheet("Totals"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Totals", "A1", "Sum")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	pages, err := NewExtractor().ExtractPagesBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Text != "Title\nValue 1\tValue 2" {
		t.Errorf("sheet 1 text = %q", pages[0].Text)
	}
	if len(pages[0].Table) != 2 || pages[0].Table[1][1] != "Value 2" {
		t.Errorf("sheet 1 table = %v", pages[0].Table)
	}
	if pages[1].Number != 2 || pages[1].Text != "Sum" {
		t.Errorf("sheet 2 = %+v", pages[1])
	}
}

func TestExtractPagesBytes_docx(t *testing.T) {
	content := zipOf("word/document.xml", docxBody("First &amp; foremost.", "Second paragraph."))
	pages, err := NewExtractor().ExtractPagesBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "First & foremost.\n\nSecond paragraph." {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestExtractPagesBytes_docxContentTypes(t *testing.T) {
	const mainType = `application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml`
	tests := []struct {
		name     string
		override string
		docPath  string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + mainType + `"/>`, "word/document2.xml"},
		{"content type first", `<Override ContentType="` + mainType + `" PartName="/word/document3.xml"/>`, "word/document3.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
				`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
				tt.override + `</Types>`
			content := zipOf("[Content_Types].xml", ct, tt.docPath, docxBody("Found it"))
			pages, err := NewExtractor().ExtractPagesBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractPagesBytes: %v", err)
			}
			if pages[0].Text != "Found it" {
				t.Errorf("got %q", pages[0].Text)
			}
		})
	}
}

func TestExtractPagesBytes_docxMissingDocument(t *testing.T) {
	if _, err := NewExtractor().ExtractPagesBytes(zipOf("other.xml", "<x/>"), ".docx"); err == nil {
		t.Error("expected error when document part is missing")
	}
	if _, err := NewExtractor().ExtractPagesBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestExtractPagesBytes_pptxSlidesInOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	content := zipOf(
		"ppt/slides/slide10.xml", slide("Tenth"),
		"ppt/slides/slide2.xml", slide("Second"),
		"ppt/slides/_rels/slide2.xml.rels", "<Relationships/>",
		"ppt/slides/slide1.xml", slide("First"),
	)
	pages, err := NewExtractor().ExtractPagesBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(pages))
	}
	for i, want := range []struct {
		n    int
		text string
	}{{1, "First"}, {2, "Second"}, {10, "Tenth"}} {
		if pages[i].Number != want.n || pages[i].Text != want.text {
			t.Errorf("slide %d = %+v, want %d %q", i, pages[i], want.n, want.text)
		}
	}
}

func TestExtractPages_files(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	xlsx := filepath.Join(dir, "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(xlsx); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	e := NewExtractor()
	for path, want := range map[string]string{txt: "File content", xlsx: "Searchable text"} {
		pages, err := e.ExtractPages(path)
		if err != nil {
			t.Fatalf("ExtractPages(%s): %v", filepath.Base(path), err)
		}
		if len(pages) != 1 || pages[0].Text != want {
			t.Errorf("ExtractPages(%s) = %+v", filepath.Base(path), pages)
		}
	}
	if _, err := e.ExtractPages(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.pdf": true, "B.PDF": true, "c.docx": true, "d.xlsx": true, "e.pptx": true,
		"f.txt": true, "g.md": true, "h.exe": false, "noext": false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
