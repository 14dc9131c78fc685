// Package assemble reconstructs transcript sub-structure from flat exon
// coordinate lists plus CDS boundaries. It is stateless: every call takes
// the full context as arguments, so the BED12/gappedPeak and genePred
// decoders share one routine.
package assemble

import (
	"fmt"
	"sort"

	"github.com/inodb/featparse/internal/feature"
)

// Feature type tags emitted by the builder.
const (
	TypeMRNA       = "mRNA"
	TypeTranscript = "transcript"
	TypeExon       = "exon"
	TypeCDS        = "CDS"
	TypeUTR5       = "five_prime_UTR"
	TypeUTR3       = "three_prime_UTR"
	TypeStartCodon = "start_codon"
	TypeStopCodon  = "stop_codon"
)

// Flags selects which child classes the builder emits.
type Flags struct {
	Exon  bool // literal pre-split exons
	CDS   bool // coding portions of exons
	UTR   bool // untranslated portions of exons
	Codon bool // start/stop codons carved from the CDS ends
}

// Transcript is the flat input to the builder. All coordinates are
// 1-based and closed. A transcript is coding when CDSStart > 0 and
// CDSStart <= CDSEnd; anything else is treated as purely noncoding.
type Transcript struct {
	Name     string
	SeqID    string
	Strand   feature.Strand
	Start    int64
	End      int64
	CDSStart int64
	CDSEnd   int64
	Exons    [][2]int64 // start,end pairs; may arrive unsorted
	Source   string

	// RootType and ExonType override the default tags; gappedPeak uses
	// them to emit gappedPeak/peak instead of mRNA/exon.
	RootType string
	ExonType string

	Factory feature.Factory
}

// Coding reports whether the transcript carries a nonzero coding region.
func (t *Transcript) Coding() bool {
	return t.CDSStart > 0 && t.CDSStart <= t.CDSEnd
}

// Build produces the transcript root with exon/CDS/UTR/codon children
// selected by flags. Exons are sorted ascending by start before
// decomposition; children are ordered along the transcript's strand.
func Build(t Transcript, flags Flags) *feature.Feature {
	factory := t.Factory
	if factory == nil {
		factory = feature.New
	}

	exons := make([][2]int64, len(t.Exons))
	copy(exons, t.Exons)
	sort.Slice(exons, func(i, j int) bool { return exons[i][0] < exons[j][0] })

	root := factory()
	root.ID = t.Name
	root.Name = t.Name
	root.SeqID = t.SeqID
	root.Start = t.Start
	root.End = t.End
	root.Strand = t.Strand
	root.Source = t.Source
	root.Type = t.RootType
	if root.Type == "" {
		if t.Coding() {
			root.Type = TypeMRNA
		} else {
			root.Type = TypeTranscript
		}
	}

	exonType := t.ExonType
	if exonType == "" {
		exonType = TypeExon
	}

	child := func(typ string, start, end int64) *feature.Feature {
		c := factory()
		c.SeqID = t.SeqID
		c.Start = start
		c.End = end
		c.Strand = t.Strand
		c.Source = t.Source
		c.Type = typ
		return c
	}

	if flags.Exon {
		for i, e := range exons {
			c := child(exonType, e[0], e[1])
			c.ID = fmt.Sprintf("%s.%s%d", t.Name, exonType, exonNumber(t.Strand, i, len(exons)))
			c.Name = c.ID
			root.AddChild(c)
		}
	}

	if t.Coding() {
		cdsStart, cdsEnd := t.CDSStart, t.CDSEnd

		// With codons requested, the terminal triplets are emitted as
		// codon children and the CDS children cover only the interior,
		// keeping UTR+CDS+codon an exact tiling of the exon coverage.
		innerStart, innerEnd := cdsStart, cdsEnd
		if flags.Codon {
			innerStart = cdsStart + 3
			innerEnd = cdsEnd - 3
		}

		nCDS, nUTR := 0, 0
		for _, e := range exons {
			es, ee := e[0], e[1]

			// Portion before the CDS: 5' UTR on the forward strand,
			// 3' UTR on the reverse.
			if flags.UTR && es < cdsStart {
				typ := TypeUTR5
				if t.Strand == feature.Reverse {
					typ = TypeUTR3
				}
				nUTR++
				c := child(typ, es, min64(ee, cdsStart-1))
				c.ID = fmt.Sprintf("%s.utr%d", t.Name, nUTR)
				c.Name = c.ID
				root.AddChild(c)
			}

			if flags.CDS && innerStart <= innerEnd {
				cs := max64(es, innerStart)
				ce := min64(ee, innerEnd)
				if cs <= ce {
					nCDS++
					c := child(TypeCDS, cs, ce)
					c.ID = fmt.Sprintf("%s.cds%d", t.Name, nCDS)
					c.Name = c.ID
					root.AddChild(c)
				}
			}

			// Portion after the CDS.
			if flags.UTR && ee > cdsEnd {
				typ := TypeUTR3
				if t.Strand == feature.Reverse {
					typ = TypeUTR5
				}
				nUTR++
				c := child(typ, max64(es, cdsEnd+1), ee)
				c.ID = fmt.Sprintf("%s.utr%d", t.Name, nUTR)
				c.Name = c.ID
				root.AddChild(c)
			}
		}

		if flags.Codon && cdsEnd-cdsStart+1 >= 3 {
			startType, stopType := TypeStartCodon, TypeStopCodon
			if t.Strand == feature.Reverse {
				startType, stopType = stopType, startType
			}
			loEnd := min64(cdsStart+2, cdsEnd)
			lo := child(startType, cdsStart, loEnd)
			lo.ID = fmt.Sprintf("%s.%s", t.Name, lo.Type)
			lo.Name = lo.ID
			root.AddChild(lo)
			// A CDS shorter than six bases cannot carry two full
			// triplets; the second codon is clamped to whatever remains
			// past the first, or skipped when nothing does.
			if hiStart := max64(cdsEnd-2, loEnd+1); hiStart <= cdsEnd {
				hi := child(stopType, hiStart, cdsEnd)
				hi.ID = fmt.Sprintf("%s.%s", t.Name, hi.Type)
				hi.Name = hi.ID
				root.AddChild(hi)
			}
		}
	}

	root.SortChildren()
	return root
}

// exonNumber numbers exons along the transcript's strand: exon 1 is the
// leftmost exon on the forward strand and the rightmost on the reverse.
func exonNumber(s feature.Strand, i, n int) int {
	if s == feature.Reverse {
		return n - i
	}
	return i + 1
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
