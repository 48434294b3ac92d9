package render

import (
    "bufio"
    "regexp"
    "strings"

    "github.com/jung-kurt/gofpdf"
)

var (
    linkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`) // [text](url)
    boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// WritePDF renders a thread preview from Markdown into a minimal PDF. Headings,
// nested bullets and links are kept; empty-text image links are dropped.
// This is intentionally simple and does not perform full Markdown layout.
func WritePDF(markdown string, outPath string) error {
    pdf := gofpdf.New("P", "mm", "A4", "")
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetFont("Helvetica", "", 11)
    pdf.AddPage()

    scanner := bufio.NewScanner(strings.NewReader(markdown))
    scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
    for scanner.Scan() {
        line := scanner.Text()
        s := strings.TrimSpace(line)
        if s == "" {
            pdf.Ln(3)
            continue
        }
        if s == "---" {
            y := pdf.GetY() + 2
            pdf.Line(10, y, 200, y)
            pdf.Ln(5)
            continue
        }
        if strings.HasPrefix(s, "#") {
            i := 0
            for i < len(s) && s[i] == '#' { i++ }
            text := strings.TrimSpace(stripImages(s[i:]))
            if text == "" { continue }
            size := 14.0
            if i >= 2 { size = 12.0 }
            pdf.SetFont("Helvetica", "B", size)
            pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
            pdf.SetFont("Helvetica", "", 11)
            continue
        }

        // Indent bullets by their nesting depth
        indent := float64(len(line)-len(strings.TrimLeft(line, " "))) * 1.5
        pdf.SetX(10 + indent)
        if strings.HasPrefix(s, "- ") {
            s = "• " + s[2:]
        }
        s = boldRe.ReplaceAllString(stripImages(s), "$1")

        parts := linkRe.FindAllStringSubmatchIndex(s, -1)
        if len(parts) == 0 {
            pdf.MultiCell(0, 5, tr(s), "", "L", false)
            continue
        }
        pos := 0
        for _, m := range parts {
            // m: [fullStart, fullEnd, textStart, textEnd, urlStart, urlEnd]
            if m[0] > pos {
                pdf.Write(5, tr(s[pos:m[0]]))
            }
            text := s[m[2]:m[3]]
            url := s[m[4]:m[5]]
            if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
                pdf.WriteLinkString(5, tr(text), url)
            } else {
                pdf.Write(5, tr(text))
            }
            pos = m[1]
        }
        if pos < len(s) {
            pdf.Write(5, tr(s[pos:]))
        }
        pdf.Ln(6)
    }
    if err := scanner.Err(); err != nil {
        return err
    }

    return pdf.OutputFileAndClose(outPath)
}

// stripImages removes empty-text links such as [](/hero-axe).
func stripImages(s string) string {
    return strings.TrimSpace(strings.ReplaceAll(linkRe.ReplaceAllStringFunc(s, func(m string) string {
        if strings.HasPrefix(m, "[]") {
            return ""
        }
        return m
    }), "  ", " "))
}
