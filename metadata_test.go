// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXMP = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:pdf="http://ns.adobe.com/pdf/1.3/"
    xmlns:xmp="http://ns.adobe.com/xap/1.0/">
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">Minimal PDF with Metadata</rdf:li></rdf:Alt></dc:title>
   <pdf:Producer>UnitTest PDF Generator</pdf:Producer>
   <xmp:CreateDate>2024-01-02T03:04:05Z</xmp:CreateDate>
   <xmp:ModifyDate>2024-02-03T04:05:06Z</xmp:ModifyDate>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`

// xmpPDF builds a page-only document carrying sampleXMP, a language tag and
// an information dictionary.
func xmpPDF() []byte {
	return buildPDF(" /Info 5 0 R",
		pdfObject{dict: "/Type /Catalog /Pages 2 0 R /Metadata 4 0 R /Lang (en-US)"},
		pdfObject{dict: "/Type /Pages /Kids [3 0 R] /Count 1"},
		pdfObject{dict: "/Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >>"},
		pdfObject{dict: "/Type /Metadata /Subtype /XML", stream: []byte(sampleXMP)},
		pdfObject{dict: "/Title (Info Title) /Author (Info Author)"},
	)
}

const sampleInfo = `/Title (Quarterly \(draft\)) /Author <FEFF00C9006D0069006C0065> /Keywords (alpha beta)`

func TestStripXMLTags(t *testing.T) {
	in := `<p>Hello <b>World</b> &amp; <i>Gophers</i></p>`
	out := stripXMLTags(in)
	assert.Equal(t, "Hello World &amp; Gophers", out)
}

func TestParseXMPWithXML(t *testing.T) {
	got, ok := parseXMPWithXML(sampleXMP)
	require.True(t, ok, "parseXMPWithXML should successfully parse the packet")

	assert.Equal(t, "Minimal PDF with Metadata", got.Title)
	assert.Equal(t, "UnitTest PDF Generator", got.Producer)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.CreateDate)
	assert.Equal(t, "2024-02-03T04:05:06Z", got.ModifyDate)
	assert.Empty(t, got.Creator)
}

func TestParseXMPWithXML_Invalid(t *testing.T) {
	// malformed XML should return ok==false
	xmp := `<xmpmeta><not-closed>`
	_, ok := parseXMPWithXML(xmp)
	assert.False(t, ok)
}

func TestParseXMPFallback(t *testing.T) {
	// Prepare a simple XMP-like blob where tags are present but XML may be messy.
	xmp := `
  <dc:title><rdf:li>Fallback Title</rdf:li></dc:title>
  <dc:creator><rdf:li>Fallback Creator</rdf:li></dc:creator>
  <dc:description><rdf:li>Fallback Subject</rdf:li></dc:description>
  <pdf:Keywords>k1,k2</pdf:Keywords>
  <xmp:CreatorTool>FallbackTool</xmp:CreatorTool>
  <pdf:Producer>FallbackProducer</pdf:Producer>
  <xmp:CreateDate>2021-04-05</xmp:CreateDate>
  <xmp:ModifyDate>2021-04-06</xmp:ModifyDate>
`
	got := parseXMPFallback(xmp)
	assert.Equal(t, "Fallback Title", got.Title)
	assert.Equal(t, "Fallback Creator", got.Creator)
	assert.Equal(t, "Fallback Subject", got.Subject)
	assert.Equal(t, "k1,k2", got.Keywords)
	assert.Equal(t, "FallbackTool", got.CreatorTool)
	assert.Equal(t, "FallbackProducer", got.Producer)
	assert.Equal(t, "2021-04-05", got.CreateDate)
	assert.Equal(t, "2021-04-06", got.ModifyDate)
}

func TestHeaderVersion(t *testing.T) {
	blob := []byte("junk\n%PDF-1.7\r\n%âãÏÓ\nrest of file")
	assert.Equal(t, "1.7", headerVersion(blob))

	// If no header present, expect empty string
	assert.Equal(t, "", headerVersion([]byte("no pdf header here")))
}

func TestPermissionsFromP(t *testing.T) {
	assert.Equal(t, allPermissions, permissionsFromP(0xFFFFFFFC))

	printOnly := permissionsFromP(0xFFFFF0C0 | 1<<2)
	assert.True(t, printOnly.CanPrint)
	assert.True(t, printOnly.CanPrintFaithful, "printing implies faithful printing")
	assert.False(t, printOnly.CanModify)
	assert.False(t, printOnly.ExtractContent)
	assert.False(t, printOnly.AssembleDocument)

	annots := permissionsFromP(1 << 5)
	assert.True(t, annots.ModifyAnnotations)
	assert.True(t, annots.FillInForm, "annotation rights include form filling")
	assert.False(t, annots.CanPrint)
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitKeywords(" a, ,b c ,d,"))
	assert.Empty(t, splitKeywords(" , "))
}

func TestReadMetadata_Info(t *testing.T) {
	md, err := ReadMetadata(pagesPDF(1, sampleInfo))
	require.NoError(t, err)
	assert.Equal(t, "Quarterly (draft)", md.Title)
	assert.Equal(t, "Émile", md.Author)
	assert.Equal(t, "alpha beta", md.Keywords)
}

func TestReadMetadata_Empty(t *testing.T) {
	_, err := ReadMetadata(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReadMetadataFull(t *testing.T) {
	data := pagesPDF(2, sampleInfo)
	mf, err := ReadMetadataFull(data)
	require.NoError(t, err)

	assert.Equal(t, "Quarterly (draft)", mf.Title)
	assert.Equal(t, "1.7", mf.PDFVersion)
	assert.Equal(t, 2, mf.NPages)
	assert.Equal(t, len(data), mf.FileSize)
	assert.False(t, mf.Encrypted)
	assert.False(t, mf.HasXMP)
	assert.False(t, mf.HasCollection)
	assert.True(t, mf.ContainsNonEmbeddedFont, "standard Helvetica is referenced, not embedded")
	assert.Equal(t, allPermissions, mf.AccessPermission)
}

func TestReadMetadataFull_XMPWins(t *testing.T) {
	mf, err := ReadMetadataFull(xmpPDF())
	require.NoError(t, err)

	assert.True(t, mf.HasXMP)
	assert.Equal(t, "Minimal PDF with Metadata", mf.Title, "XMP title overrides Info")
	assert.Equal(t, "Info Author", mf.Author, "Info fills what XMP lacks")
	assert.Equal(t, "2024-01-02T03:04:05Z", mf.CreationDate)
	assert.Equal(t, "en-US", mf.Language)
	assert.False(t, mf.ContainsNonEmbeddedFont)
}

func TestMetadataJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MetadataJSON(&buf, pagesPDF(3, sampleInfo)))
	out := buf.String()
	assert.Contains(t, out, `"title": "Quarterly (draft)"`)
	assert.Contains(t, out, `"xmpTPg:NPages": 3`)
	assert.Contains(t, out, `"can_print": true`)
}

func TestEditMetadata(t *testing.T) {
	src := pagesPDF(1, sampleInfo)
	d, err := EditMetadata(NewPDFLibrary(), "report.pdf", src, MetadataEdit{
		Title:    "  Annual Report ",
		Keywords: "finance, 2026 ,",
	})
	require.NoError(t, err)
	assert.Equal(t, "meta_report.pdf", d.Name)
	assert.Equal(t, len(src), d.Original)

	md, err := ReadMetadata(d.Data)
	require.NoError(t, err)
	assert.Equal(t, "Annual Report", md.Title)
	assert.Equal(t, "finance 2026", md.Keywords)
	assert.Equal(t, "Émile", md.Author, "empty fields keep their value")
}

func TestEditMetadata_OnlyNonEmptyFields(t *testing.T) {
	lib := &fakeLibrary{}
	_, err := EditMetadata(lib, "a.pdf", []byte("%PDF"), MetadataEdit{Subject: "new subject"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Title": "secret", "Author": "someone", "Subject": "new subject"}, lib.doc.info)
	assert.Nil(t, lib.doc.keywords)
}
