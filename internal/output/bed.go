// Package output re-encodes feature trees into annotation text formats.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/featparse/internal/feature"
)

// BedCoords converts a feature's 1-based closed interval back to the
// BED-native 0-based half-open pair.
func BedCoords(f *feature.Feature) (start0, end int64) {
	return f.Start - 1, f.End
}

// BEDWriter writes top-level features as BED6 lines.
type BEDWriter struct {
	w *bufio.Writer
}

// NewBEDWriter creates a BED writer.
func NewBEDWriter(w io.Writer) *BEDWriter {
	return &BEDWriter{w: bufio.NewWriter(w)}
}

// Write writes one feature as a BED6 line. Children are not emitted;
// block-encoded output would need the full bed12 layout.
func (bw *BEDWriter) Write(f *feature.Feature) error {
	start0, end := BedCoords(f)
	score := "."
	if f.HasScore {
		score = strconv.FormatFloat(f.Score, 'f', -1, 64)
	}
	name := f.DisplayName()
	if name == "" {
		name = "."
	}
	_, err := fmt.Fprintf(bw.w, "%s\t%d\t%d\t%s\t%s\t%s\n",
		f.SeqID, start0, end, name, score, f.Strand)
	return err
}

// WriteTrack writes a track header line.
func (bw *BEDWriter) WriteTrack(name string) error {
	_, err := fmt.Fprintf(bw.w, "track name=%q\n", name)
	return err
}

// Flush flushes buffered output.
func (bw *BEDWriter) Flush() error {
	return bw.w.Flush()
}

// GFF3Writer writes feature trees as GFF3 with explicit ID/Parent
// linkage.
type GFF3Writer struct {
	w           *bufio.Writer
	wroteHeader bool
}

// NewGFF3Writer creates a GFF3 writer.
func NewGFF3Writer(w io.Writer) *GFF3Writer {
	return &GFF3Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the gff-version pragma.
func (gw *GFF3Writer) WriteHeader() error {
	gw.wroteHeader = true
	_, err := gw.w.WriteString("##gff-version 3\n")
	return err
}

// Write writes one tree followed by a "###" close-of-feature directive.
func (gw *GFF3Writer) Write(f *feature.Feature) error {
	if !gw.wroteHeader {
		if err := gw.WriteHeader(); err != nil {
			return err
		}
	}
	if err := gw.writeNode(f, ""); err != nil {
		return err
	}
	_, err := gw.w.WriteString("###\n")
	return err
}

func (gw *GFF3Writer) writeNode(f *feature.Feature, parentID string) error {
	score := "."
	if f.HasScore {
		score = strconv.FormatFloat(f.Score, 'f', -1, 64)
	}
	attrs := gw.attributes(f, parentID)
	_, err := fmt.Fprintf(gw.w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
		f.SeqID, orDot(f.Source), orDot(f.Type), f.Start, f.End,
		score, f.Strand, orDot(f.Attributes.Get("phase")), attrs)
	if err != nil {
		return err
	}
	for _, c := range f.Children {
		if err := gw.writeNode(c, f.ID); err != nil {
			return err
		}
	}
	return nil
}

// attributes builds column 9: ID/Name/Parent first, then the feature's
// own attributes in insertion order. Reserved characters are
// percent-escaped.
func (gw *GFF3Writer) attributes(f *feature.Feature, parentID string) string {
	var parts []string
	if f.ID != "" {
		parts = append(parts, "ID="+escape(f.ID))
	}
	if f.Name != "" && f.Name != f.ID {
		parts = append(parts, "Name="+escape(f.Name))
	}
	if parentID != "" {
		parts = append(parts, "Parent="+escape(parentID))
	}
	for _, k := range f.Attributes.Keys() {
		if k == "phase" {
			continue
		}
		vs := f.Attributes.GetAll(k)
		escaped := make([]string, len(vs))
		for i, v := range vs {
			escaped[i] = escape(v)
		}
		parts = append(parts, k+"="+strings.Join(escaped, ","))
	}
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, ";")
}

// Flush flushes buffered output.
func (gw *GFF3Writer) Flush() error {
	return gw.w.Flush()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// escape percent-encodes the characters GFF3 reserves inside attribute
// values.
func escape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		";", "%3B",
		"=", "%3D",
		"&", "%26",
		",", "%2C",
		"\t", "%09",
		"\n", "%0A",
	)
	return r.Replace(s)
}
