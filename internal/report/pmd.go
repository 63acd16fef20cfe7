package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/panbanda/cpd/pkg/detector"
	"github.com/panbanda/cpd/pkg/source"
)

type pmdCPD struct {
	XMLName      xml.Name         `xml:"pmd-cpd"`
	Duplications []pmdDuplication `xml:"duplication"`
}

type pmdDuplication struct {
	Lines        int       `xml:"lines,attr"`
	Tokens       int       `xml:"tokens,attr"`
	Files        []pmdFile `xml:"file"`
	CodeFragment pmdCDATA  `xml:"codefragment"`
}

type pmdFile struct {
	Path string `xml:"path,attr"`
	Line int    `xml:"line,attr"`
}

type pmdCDATA struct {
	Text string `xml:",cdata"`
}

// WritePMD writes clones in the PMD-CPD XML format understood by CI
// dashboards. The code fragment is read from src, nil meaning the local
// filesystem.
func WritePMD(w io.Writer, res *detector.Result, src source.ContentSource) error {
	if src == nil {
		src = source.NewFilesystem()
	}

	doc := pmdCPD{Duplications: make([]pmdDuplication, 0, res.Len())}
	for _, cl := range res.Clones {
		frag, err := Fragment(src, cl.Occurrences[0])
		if err != nil {
			return err
		}
		d := pmdDuplication{
			Lines:        cl.Lines,
			Tokens:       cl.Tokens,
			CodeFragment: pmdCDATA{Text: xmlText(frag)},
		}
		for _, o := range cl.Occurrences {
			d.Files = append(d.Files, pmdFile{Path: o.File, Line: o.StartLine})
		}
		doc.Duplications = append(doc.Duplications, d)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding pmd-cpd: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// xmlText replaces characters XML 1.0 cannot carry, such as C0 control
// bytes other than tab and line breaks, with U+FFFD.
func xmlText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r',
			r >= 0x20 && r <= 0xD7FF,
			r >= 0xE000 && r <= 0xFFFD,
			r >= 0x10000 && r <= utf8.MaxRune:
			return r
		}
		return utf8.RuneError
	}, s)
}

// WritePMDFile writes the PMD-CPD report to path.
func WritePMDFile(path string, res *detector.Result, src source.ContentSource) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePMD(f, res, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
