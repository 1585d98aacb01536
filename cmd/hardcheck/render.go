package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// palette colors the status markers
type palette struct {
	good    *color.Color
	bad     *color.Color
	maybe   *color.Color
	unknown *color.Color
}

// newPalette honors the color mode. In auto mode fatih/color disables
// colors when standard output is not a terminal.
func newPalette(mode entities.ColorMode) palette {
	p := palette{
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		maybe:   color.New(color.FgYellow),
		unknown: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.good, p.bad, p.maybe, p.unknown} {
		switch mode {
		case entities.ColorAlways:
			c.EnableColor()
		case entities.ColorNever:
			c.DisableColor()
		}
	}
	return p
}

func (p palette) of(s entities.FeatureStatus) *color.Color {
	switch s {
	case entities.StatusPresent:
		return p.good
	case entities.StatusAbsent:
		return p.bad
	case entities.StatusProbablyPresent:
		return p.maybe
	default:
		return p.unknown
	}
}

func renderReport(w io.Writer, results []entities.AnalysisResult, format entities.OutputFormat, p palette) error {
	switch format {
	case entities.OutputTable:
		return renderTable(w, results)
	case entities.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toDocuments(results))
	case entities.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toDocuments(results)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderText(w, results, p)
	}
}

// renderText writes one line per analyzed file, e.g.
//
//	/bin/ls: +ASLR +STACK-PROT ~READ-ONLY-RELOC !IMMEDIATE-BIND +FORTIFY-SOURCE(+memcpy,!strcpy)
//
// A failed file keeps its place with an error marker, e.g.
//
//	/tmp/notes.txt: error: unsupported binary format
func renderText(w io.Writer, results []entities.AnalysisResult, p palette) error {
	for _, r := range results {
		var line strings.Builder
		line.WriteString(r.Path)
		line.WriteString(":")
		if r.Failed() {
			line.WriteString(" ")
			line.WriteString(p.bad.Sprint("error"))
			line.WriteString(": ")
			line.WriteString(strings.TrimPrefix(r.Err.Error(), r.Path+": "))
		}
		for _, f := range r.Features {
			line.WriteString(" ")
			line.WriteString(p.of(f.Status).Sprint(f.Status.Marker() + string(f.Feature)))
			line.WriteString(fortifyDetail(f, p))
		}
		line.WriteString("\n")

		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}

func fortifyDetail(f entities.FeatureReport, p palette) string {
	if len(f.Protected) == 0 && len(f.Unprotected) == 0 {
		return ""
	}
	names := make([]string, 0, len(f.Protected)+len(f.Unprotected))
	for _, name := range f.Protected {
		names = append(names, p.good.Sprint(entities.StatusPresent.Marker()+name))
	}
	for _, name := range f.Unprotected {
		names = append(names, p.bad.Sprint(entities.StatusAbsent.Marker()+name))
	}
	return "(" + strings.Join(names, ",") + ")"
}

func renderTable(w io.Writer, results []entities.AnalysisResult) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Format", "Feature", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	plain := newPalette(entities.ColorNever)

	for _, r := range results {
		if r.Failed() {
			table.Append([]string{r.Path, formatName(r.Format), "-", "error", r.Err.Error()})
			continue
		}
		for _, f := range r.Features {
			table.Append([]string{r.Path, r.Format.String(), string(f.Feature), f.Status.String(), fortifyDetail(f, plain)})
		}
	}

	table.Render()
	return nil
}

func formatName(f entities.BinaryFormat) string {
	if f == entities.FormatUnrecognized {
		return "-"
	}
	return f.String()
}

// reportDocument is the machine-readable form of one result
type reportDocument struct {
	Path     string            `json:"path" yaml:"path"`
	Format   string            `json:"format,omitempty" yaml:"format,omitempty"`
	Features []featureDocument `json:"features,omitempty" yaml:"features,omitempty"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

type featureDocument struct {
	Name        string   `json:"name" yaml:"name"`
	Status      string   `json:"status" yaml:"status"`
	Protected   []string `json:"protected,omitempty" yaml:"protected,omitempty"`
	Unprotected []string `json:"unprotected,omitempty" yaml:"unprotected,omitempty"`
}

func toDocuments(results []entities.AnalysisResult) []reportDocument {
	docs := make([]reportDocument, 0, len(results))
	for _, r := range results {
		doc := reportDocument{Path: r.Path}
		if r.Format != entities.FormatUnrecognized {
			doc.Format = r.Format.String()
		}
		if r.Failed() {
			doc.Error = r.Err.Error()
			docs = append(docs, doc)
			continue
		}
		for _, f := range r.Features {
			doc.Features = append(doc.Features, featureDocument{
				Name:        string(f.Feature),
				Status:      f.Status.String(),
				Protected:   f.Protected,
				Unprotected: f.Unprotected,
			})
		}
		docs = append(docs, doc)
	}
	return docs
}
