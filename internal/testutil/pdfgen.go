package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDFBytes builds a minimal uncompressed PDF with one page per text
// argument. Each line of a page's text becomes its own text block. Cross
// reference offsets are computed exactly, so standard readers accept the
// output.
func PDFBytes(pages ...string) []byte {
	if len(pages) == 0 {
		pages = []string{""}
	}
	n := len(pages)
	fontObj := 3 + 2*n
	objCount := fontObj + 1 // object numbers 0..fontObj

	var buf bytes.Buffer
	offsets := make([]int, fontObj+1)

	buf.WriteString("%PDF-1.4\n")
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))

	for i, text := range pages {
		pageObj := 3 + 2*i
		contentObj := pageObj + 1
		writeObj(pageObj, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontObj, contentObj))

		var content strings.Builder
		y := 720
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(&content, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, escapePDFString(line))
			y -= 14
		}
		writeObj(contentObj, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()))
	}

	writeObj(fontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= fontObj; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount, xrefOffset)
	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
