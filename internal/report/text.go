package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderText implements output.Renderable. It prints the clone list
// followed by a one-line summary; quiet mode prints the summary only.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	p := message.NewPrinter(language.English)
	s := r.doc.Summary

	bold := color.New(color.Bold)
	if !colored {
		bold.DisableColor()
	}

	if !r.opts.Quiet {
		if len(r.doc.Clones) == 0 {
			p.Fprintf(w, "No clones found.\n\n")
		} else {
			bold.Fprint(w, p.Sprintf("Found %d exact clones with %d duplicated lines in %d files:\n\n",
				s.Clones, s.DuplicatedLines, s.FilesWithClones))
			for _, c := range r.doc.Clones {
				r.printClone(w, c)
			}
		}
	}

	pct := color.New(color.FgGreen)
	if s.DuplicatedLines > 0 {
		pct = color.New(color.FgYellow)
	}
	if !colored {
		pct.DisableColor()
	}
	pct.Fprint(w, p.Sprintf("%.2f%%", s.Percentage))
	p.Fprintf(w, " duplicated lines out of %d total lines in %d files.\n", s.TotalLines, s.FilesScanned)

	if r.opts.Verbose && !r.opts.Quiet {
		if len(r.doc.Hotspots) > 0 {
			fmt.Fprintln(w)
			if err := r.hotspotTable().RenderText(w, colored); err != nil {
				return err
			}
		}
		p.Fprintf(w, "\nTime: %s\n", formatDuration(time.Duration(s.DurationMS)*time.Millisecond))
	}
	return nil
}

func (r *Report) printClone(w io.Writer, c CloneEntry) {
	for i, l := range c.Locations {
		prefix := "    "
		if i == 0 {
			prefix = "  - "
		}
		fmt.Fprintf(w, "%s%s:%d-%d (%d lines)\n", prefix, l.File, l.StartLine, l.EndLine, l.EndLine-l.StartLine+1)
	}
	if c.Fragment != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(strings.TrimSuffix(c.Fragment, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	fmt.Fprintln(w)
}
