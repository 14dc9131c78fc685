// Package ucsc decodes the UCSC gene-prediction table family: genePred,
// refFlat, knownGene, genePredExt, and genePredExtBin. The column count
// selects the sub-dialect; each has a fixed field-offset table. Structural
// assembly is shared with the bed package through internal/assemble, since
// bed12 and genePred differ only in column layout.
package ucsc

import (
	"strconv"
	"strings"

	"github.com/inodb/featparse/internal/assemble"
	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
)

// layout holds the 0-based field offsets for one sub-dialect. An offset
// of -1 means the dialect does not carry that column.
type layout struct {
	name       int
	name2      int // gene symbol column, -1 when absent
	chrom      int
	strand     int
	txStart    int
	txEnd      int
	cdsStart   int
	cdsEnd     int
	exonCount  int
	exonStarts int
	exonEnds   int
}

var layouts = map[format.Filetype]layout{
	format.GenePred: {
		name: 0, name2: -1, chrom: 1, strand: 2,
		txStart: 3, txEnd: 4, cdsStart: 5, cdsEnd: 6,
		exonCount: 7, exonStarts: 8, exonEnds: 9,
	},
	format.RefFlat: {
		name: 1, name2: 0, chrom: 2, strand: 3,
		txStart: 4, txEnd: 5, cdsStart: 6, cdsEnd: 7,
		exonCount: 8, exonStarts: 9, exonEnds: 10,
	},
	format.KnownGene: {
		name: 0, name2: -1, chrom: 1, strand: 2,
		txStart: 3, txEnd: 4, cdsStart: 5, cdsEnd: 6,
		exonCount: 7, exonStarts: 8, exonEnds: 9,
	},
	format.GenePredExt: {
		name: 0, name2: 11, chrom: 1, strand: 2,
		txStart: 3, txEnd: 4, cdsStart: 5, cdsEnd: 6,
		exonCount: 7, exonStarts: 8, exonEnds: 9,
	},
	format.GenePredExtBin: {
		name: 1, name2: 12, chrom: 2, strand: 3,
		txStart: 4, txEnd: 5, cdsStart: 6, cdsEnd: 7,
		exonCount: 8, exonStarts: 9, exonEnds: 10,
	},
}

// Decoder turns one gene-prediction table line into a transcript tree.
type Decoder struct {
	Filetype format.Filetype
	Source   string
	Flags    assemble.Flags
	Factory  feature.Factory
	Aux      AuxTables
}

// Decode parses one data line. Column-count or numeric violations are
// fatal.
func (d *Decoder) Decode(line string, lineNum int) (*feature.Feature, error) {
	lay, ok := layouts[d.Filetype]
	if !ok {
		return nil, format.Malformed(lineNum, line, "no layout for filetype %s", d.Filetype)
	}
	fields := strings.Split(line, "\t")
	want := format.FieldCount(d.Filetype)
	if len(fields) != want {
		return nil, format.Malformed(lineNum, line, "expected %d columns for %s, found %d", want, d.Filetype, len(fields))
	}

	txStart, err := strconv.ParseInt(fields[lay.txStart], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid txStart %q", fields[lay.txStart])
	}
	txEnd, err := strconv.ParseInt(fields[lay.txEnd], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid txEnd %q", fields[lay.txEnd])
	}
	cdsStart, err := strconv.ParseInt(fields[lay.cdsStart], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid cdsStart %q", fields[lay.cdsStart])
	}
	cdsEnd, err := strconv.ParseInt(fields[lay.cdsEnd], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid cdsEnd %q", fields[lay.cdsEnd])
	}
	exonCount, err := strconv.Atoi(fields[lay.exonCount])
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid exonCount %q", fields[lay.exonCount])
	}
	starts, err := splitCommaInts(fields[lay.exonStarts])
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid exonStarts %q", fields[lay.exonStarts])
	}
	ends, err := splitCommaInts(fields[lay.exonEnds])
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid exonEnds %q", fields[lay.exonEnds])
	}
	if len(starts) != exonCount || len(ends) != exonCount {
		return nil, format.Malformed(lineNum, line, "exonCount %d does not match %d starts and %d ends", exonCount, len(starts), len(ends))
	}

	exons := make([][2]int64, exonCount)
	for i := 0; i < exonCount; i++ {
		exons[i] = [2]int64{starts[i], ends[i]}
	}

	name := fields[lay.name]
	t := assemble.Transcript{
		Name:    name,
		SeqID:   fields[lay.chrom],
		Strand:  feature.ParseStrand(fields[lay.strand]),
		Start:   txStart,
		End:     txEnd,
		Exons:   exons,
		Source:  d.Source,
		Factory: d.Factory,
	}
	// Nonzero coding region classifies the transcript as mRNA; otherwise
	// the generic noncoding transcript tag applies.
	if cdsStart < cdsEnd {
		t.CDSStart = cdsStart
		t.CDSEnd = cdsEnd
	}

	root := assemble.Build(t, d.Flags)

	if lay.name2 >= 0 && fields[lay.name2] != "" {
		root.Attributes.Set("gene_name", fields[lay.name2])
	}
	d.Aux.annotate(root, name)
	return root, nil
}

// GeneName returns the grouping symbol used by gene-level assembly: the
// dialect's gene column when present, otherwise any cross-reference match,
// otherwise the transcript name itself.
func GeneName(f *feature.Feature) string {
	if g := f.Attributes.Get("gene_name"); g != "" {
		return g
	}
	return f.Name
}

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
