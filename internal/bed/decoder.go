// Package bed decodes the BED family of interval formats: bed3 through
// bed12, bedGraph, narrowPeak, broadPeak, and gappedPeak. BED coordinates
// are 0-based and half-open on the wire; decoded features are 1-based and
// closed like every other flavor.
package bed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/featparse/internal/assemble"
	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
)

// TypeRegion is the generic primary tag for plain BED intervals.
const TypeRegion = "region"

// TypePeak is the primary tag for narrowPeak/broadPeak intervals and for
// gappedPeak sub-blocks.
const TypePeak = "peak"

// TypeGappedPeak is the primary tag for gappedPeak roots.
const TypeGappedPeak = "gappedPeak"

// Decoder turns one BED-family line into a feature node, or a node
// cluster for the block-encoded variants.
type Decoder struct {
	Filetype format.Filetype
	Source   string
	Flags    assemble.Flags
	Factory  feature.Factory
}

// CoordID synthesizes the stable primary identifier from the original
// 0-based coordinates, independent of the name column, so the id survives
// re-parsing regardless of name edits.
func CoordID(seqID string, start0, end int64) string {
	return fmt.Sprintf("%s:%d-%d", seqID, start0, end)
}

// Decode parses one data line. A field count that does not match the
// detected filetype is fatal, not skipped.
func (d *Decoder) Decode(line string, lineNum int) (*feature.Feature, error) {
	fields := strings.Split(line, "\t")
	want := format.FieldCount(d.Filetype)
	if len(fields) != want {
		return nil, format.Malformed(lineNum, line, "expected %d columns for %s, found %d", want, d.Filetype, len(fields))
	}

	start0, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid start coordinate %q", fields[1])
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid end coordinate %q", fields[2])
	}

	switch d.Filetype {
	case format.BedGraph:
		return d.decodeBedGraph(fields, start0, end, lineNum, line)
	case format.NarrowPeak, format.BroadPeak:
		return d.decodePeak(fields, start0, end, lineNum, line)
	case format.GappedPeak, format.Bed(12):
		return d.decodeBlocks(fields, start0, end, lineNum, line)
	}
	return d.decodePlain(fields, start0, end)
}

// newNode builds the common location/identity fields shared by every
// variant.
func (d *Decoder) newNode(seqID string, start0, end int64) *feature.Feature {
	factory := d.Factory
	if factory == nil {
		factory = feature.New
	}
	f := factory()
	f.ID = CoordID(seqID, start0, end)
	f.SeqID = seqID
	f.Start = start0 + 1
	f.End = end
	f.Strand = feature.Unknown
	f.Type = TypeRegion
	f.Source = d.Source
	return f
}

// decodePlain handles bed3 through bed9. Name, score, and strand are
// populated when their columns are present; columns 7-9 are retained as
// attributes.
func (d *Decoder) decodePlain(fields []string, start0, end int64) (*feature.Feature, error) {
	f := d.newNode(fields[0], start0, end)
	if len(fields) > 3 {
		f.Name = fields[3]
	}
	if len(fields) > 4 {
		setScore(f, fields[4])
	}
	if len(fields) > 5 {
		f.Strand = feature.ParseStrand(fields[5])
	}
	if len(fields) > 6 {
		f.Attributes.Set("thickStart", fields[6])
	}
	if len(fields) > 7 {
		f.Attributes.Set("thickEnd", fields[7])
	}
	if len(fields) > 8 {
		f.Attributes.Set("itemRGB", fields[8])
	}
	return f, nil
}

// decodeBedGraph handles the 4-column coverage variant: no name, no
// strand, column 4 is the score.
func (d *Decoder) decodeBedGraph(fields []string, start0, end int64, lineNum int, line string) (*feature.Feature, error) {
	f := d.newNode(fields[0], start0, end)
	score, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid bedGraph score %q", fields[3])
	}
	f.SetScore(score)
	return f, nil
}

// decodePeak handles narrowPeak (10 columns) and broadPeak (9). The
// trailing statistics become attributes.
func (d *Decoder) decodePeak(fields []string, start0, end int64, lineNum int, line string) (*feature.Feature, error) {
	f := d.newNode(fields[0], start0, end)
	f.Type = TypePeak
	f.Name = fields[3]
	setScore(f, fields[4])
	f.Strand = feature.ParseStrand(fields[5])
	f.Attributes.Set("signalValue", fields[6])
	f.Attributes.Set("pValue", fields[7])
	f.Attributes.Set("qValue", fields[8])
	if d.Filetype == format.NarrowPeak {
		f.Attributes.Set("peak", fields[9])
	}
	return f, nil
}

// decodeBlocks handles bed12 and gappedPeak. The blockSizes/blockStarts
// lists become absolute exon pairs and the shared assembler produces the
// transcript-shaped tree.
func (d *Decoder) decodeBlocks(fields []string, start0, end int64, lineNum int, line string) (*feature.Feature, error) {
	thickStart0, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid thickStart %q", fields[6])
	}
	thickEnd, err := strconv.ParseInt(fields[7], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid thickEnd %q", fields[7])
	}
	blockCount, err := strconv.Atoi(fields[9])
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid blockCount %q", fields[9])
	}
	sizes, err := splitCommaInts(fields[10])
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid blockSizes %q", fields[10])
	}
	starts, err := splitCommaInts(fields[11])
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid blockStarts %q", fields[11])
	}
	if len(sizes) != blockCount || len(starts) != blockCount {
		return nil, format.Malformed(lineNum, line, "blockCount %d does not match %d sizes and %d starts", blockCount, len(sizes), len(starts))
	}

	exons := make([][2]int64, blockCount)
	for i := 0; i < blockCount; i++ {
		es0 := start0 + starts[i]
		exons[i] = [2]int64{es0 + 1, es0 + sizes[i]}
	}

	t := assemble.Transcript{
		Name:     fields[3],
		SeqID:    fields[0],
		Strand:   feature.ParseStrand(fields[5]),
		Start:    start0 + 1,
		End:      end,
		CDSStart: thickStart0 + 1,
		CDSEnd:   thickEnd,
		Exons:    exons,
		Source:   d.Source,
		Factory:  d.Factory,
	}
	if d.Filetype == format.GappedPeak {
		t.RootType = TypeGappedPeak
		t.ExonType = TypePeak
		// gappedPeak carries no coding region; the thick range is
		// display-only.
		t.CDSStart, t.CDSEnd = 0, 0
	}

	root := assemble.Build(t, d.Flags)
	// The coordinate-based id keeps bed12 consistent with the other BED
	// variants; the name column stays as the display name.
	root.ID = CoordID(fields[0], start0, end)
	setScore(root, fields[4])
	root.Attributes.Set("itemRGB", fields[8])
	if d.Filetype == format.GappedPeak {
		root.Attributes.Set("signalValue", fields[12])
		root.Attributes.Set("pValue", fields[13])
		root.Attributes.Set("qValue", fields[14])
	}
	return root, nil
}

// setScore parses an optional numeric score; "." leaves it unset.
func setScore(f *feature.Feature, s string) {
	if s == "" || s == "." {
		return
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		f.SetScore(v)
	}
}

// splitCommaInts decodes a comma-separated integer list, discarding the
// trailing empty element left by a conventional trailing comma.
func splitCommaInts(s string) ([]int64, error) {
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
