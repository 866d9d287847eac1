package packaging

import (
	"archive/zip"
	"bytes"
	"testing"
)

const testCoreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>title</dc:title>
<dc:creator>creator</dc:creator>
<dc:description>desc</dc:description>
</cp:coreProperties>`

const testAppXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">
<Application>docx-redline</Application>
</Properties>`

const testRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>
</Relationships>`

const testDocRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p/></w:body></w:document>`

const testStylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`

func buildTestDocx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"_rels/.rels":                   testRootRels,
		"docProps/core.xml":             testCoreXML,
		"docProps/app.xml":              testAppXML,
		"word/document.xml":             testDocumentXML,
		"word/_rels/document.xml.rels":  testDocRels,
		"word/styles.xml":               testStylesXML,
		"word/media/image1.png":         "not-a-real-png",
		"[Content_Types].xml":           `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
	}
	for name, content := range files {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestOpenBytesClassifiesParts(t *testing.T) {
	data := buildTestDocx(t)

	doc, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	if doc.CoreProps == nil || doc.CoreProps.Title != "title" {
		t.Fatalf("CoreProps not parsed: %+v", doc.CoreProps)
	}
	if doc.CoreProps.Creator != "creator" || doc.CoreProps.Description != "desc" {
		t.Fatalf("CoreProps fields mismatch: %+v", doc.CoreProps)
	}
	if doc.AppProps == nil || doc.AppProps.Application != "docx-redline" {
		t.Fatalf("AppProps not parsed: %+v", doc.AppProps)
	}
	if doc.Styles == nil {
		t.Fatalf("Styles part not classified")
	}
	if len(doc.Media) != 1 {
		t.Fatalf("expected 1 media file, got %d: %v", len(doc.Media), doc.Media)
	}
	if _, ok := doc.Media["/word/media/image1.png"]; !ok {
		t.Fatalf("media keyed incorrectly: %v", doc.Media)
	}
}

func TestRoundTripPreservesParts(t *testing.T) {
	data := buildTestDocx(t)

	doc, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	out, err := doc.SaveBytes()
	if err != nil {
		t.Fatalf("SaveBytes: %v", err)
	}

	doc2, err := OpenBytes(out)
	if err != nil {
		t.Fatalf("reopening round-tripped bytes: %v", err)
	}
	if doc2.CoreProps == nil || doc2.CoreProps.Title != "title" {
		t.Fatalf("round trip lost CoreProps: %+v", doc2.CoreProps)
	}
	if doc2.Styles == nil {
		t.Fatalf("round trip lost styles part")
	}
	if len(doc2.Media) != 1 {
		t.Fatalf("round trip lost media: %v", doc2.Media)
	}
}

func TestOpenBytesMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, _ := zw.Create("_rels/.rels")
	fw.Write([]byte(`<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`))
	zw.Close()

	if _, err := OpenBytes(buf.Bytes()); err == nil {
		t.Fatalf("expected error when no main document relationship is present")
	}
}
