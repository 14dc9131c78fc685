package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/featparse/internal/feature"
)

func coding(strand feature.Strand) Transcript {
	return Transcript{
		Name:     "tx1",
		SeqID:    "chr1",
		Strand:   strand,
		Start:    1000,
		End:      5000,
		CDSStart: 1500,
		CDSEnd:   4500,
		Exons:    [][2]int64{{1000, 2000}, {3000, 5000}},
		Source:   "test",
	}
}

func childrenOfType(f *feature.Feature, typ string) []*feature.Feature {
	var out []*feature.Feature
	for _, c := range f.Children {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestBuild_CodingForward(t *testing.T) {
	root := Build(coding(feature.Forward), Flags{Exon: true, CDS: true, UTR: true})

	assert.Equal(t, TypeMRNA, root.Type)
	assert.Equal(t, int64(1000), root.Start)
	assert.Equal(t, int64(5000), root.End)

	exons := childrenOfType(root, TypeExon)
	require.Len(t, exons, 2)

	cds := childrenOfType(root, TypeCDS)
	require.Len(t, cds, 2)
	assert.Equal(t, int64(1500), cds[0].Start)
	assert.Equal(t, int64(2000), cds[0].End)
	assert.Equal(t, int64(3000), cds[1].Start)
	assert.Equal(t, int64(4500), cds[1].End)

	utr5 := childrenOfType(root, TypeUTR5)
	require.Len(t, utr5, 1)
	assert.Equal(t, int64(1000), utr5[0].Start)
	assert.Equal(t, int64(1499), utr5[0].End)

	utr3 := childrenOfType(root, TypeUTR3)
	require.Len(t, utr3, 1)
	assert.Equal(t, int64(4501), utr3[0].Start)
	assert.Equal(t, int64(5000), utr3[0].End)
}

func TestBuild_ReverseStrandFlipsUTRs(t *testing.T) {
	root := Build(coding(feature.Reverse), Flags{CDS: true, UTR: true})

	// Genomically-left portion is the 3' UTR on the reverse strand.
	utr3 := childrenOfType(root, TypeUTR3)
	require.Len(t, utr3, 1)
	assert.Equal(t, int64(1000), utr3[0].Start)

	utr5 := childrenOfType(root, TypeUTR5)
	require.Len(t, utr5, 1)
	assert.Equal(t, int64(4501), utr5[0].Start)

	// Children are ordered along the reverse strand: descending start.
	starts := make([]int64, len(root.Children))
	for i, c := range root.Children {
		starts[i] = c.Start
	}
	for i := 1; i < len(starts); i++ {
		assert.LessOrEqual(t, starts[i], starts[i-1])
	}
}

func TestBuild_ExonTiling(t *testing.T) {
	// With all four flags the UTR+CDS+codon children exactly tile the
	// exon coverage: identical total length, no gaps or overlaps.
	for _, strand := range []feature.Strand{feature.Forward, feature.Reverse} {
		root := Build(coding(strand), Flags{Exon: true, CDS: true, UTR: true, Codon: true})

		var exonSum, tileSum int64
		var tiles []*feature.Feature
		for _, c := range root.Children {
			if c.Type == TypeExon {
				exonSum += c.Length()
				continue
			}
			tileSum += c.Length()
			tiles = append(tiles, c)
		}
		assert.Equal(t, exonSum, tileSum, "strand %v", strand)

		// No two tiles overlap.
		for i := range tiles {
			for j := i + 1; j < len(tiles); j++ {
				a, b := tiles[i], tiles[j]
				overlap := a.Start <= b.End && b.Start <= a.End
				assert.False(t, overlap, "strand %v: %s %s overlaps %s %s",
					strand, a.Type, a.CoordString(), b.Type, b.CoordString())
			}
		}
	}
}

func TestBuild_CodonsCarvedFromCDS(t *testing.T) {
	root := Build(coding(feature.Forward), Flags{CDS: true, Codon: true})

	start := childrenOfType(root, TypeStartCodon)
	require.Len(t, start, 1)
	assert.Equal(t, int64(1500), start[0].Start)
	assert.Equal(t, int64(1502), start[0].End)

	stop := childrenOfType(root, TypeStopCodon)
	require.Len(t, stop, 1)
	assert.Equal(t, int64(4498), stop[0].Start)
	assert.Equal(t, int64(4500), stop[0].End)

	cds := childrenOfType(root, TypeCDS)
	require.NotEmpty(t, cds)
	assert.Equal(t, int64(1503), cds[0].Start)
	assert.Equal(t, int64(4497), cds[len(cds)-1].End)
}

func TestBuild_ShortCDSCodonsStayDisjoint(t *testing.T) {
	// A CDS under six bases cannot hold two full triplets: the second
	// codon shrinks to the leftover bases, or vanishes for a 3-base CDS.
	// The tiling property must hold throughout.
	for _, cdsLen := range []int64{3, 4, 5, 6} {
		tr := Transcript{
			Name:     "tx3",
			SeqID:    "chr1",
			Strand:   feature.Forward,
			Start:    100,
			End:      200,
			CDSStart: 150,
			CDSEnd:   150 + cdsLen - 1,
			Exons:    [][2]int64{{100, 200}},
		}
		root := Build(tr, Flags{Exon: true, CDS: true, UTR: true, Codon: true})

		var exonSum, tileSum int64
		var tiles []*feature.Feature
		for _, c := range root.Children {
			if c.Type == TypeExon {
				exonSum += c.Length()
				continue
			}
			tileSum += c.Length()
			tiles = append(tiles, c)
		}
		assert.Equal(t, exonSum, tileSum, "cds length %d", cdsLen)

		for i := range tiles {
			for j := i + 1; j < len(tiles); j++ {
				a, b := tiles[i], tiles[j]
				overlap := a.Start <= b.End && b.Start <= a.End
				assert.False(t, overlap, "cds length %d: %s %s overlaps %s %s",
					cdsLen, a.Type, a.CoordString(), b.Type, b.CoordString())
			}
		}

		starts := childrenOfType(root, TypeStartCodon)
		require.Len(t, starts, 1, "cds length %d", cdsLen)
		assert.Equal(t, int64(150), starts[0].Start)

		stops := childrenOfType(root, TypeStopCodon)
		if cdsLen == 3 {
			assert.Empty(t, stops, "a 3-base cds carries a single codon")
		} else {
			require.Len(t, stops, 1, "cds length %d", cdsLen)
			assert.Equal(t, int64(153), stops[0].Start)
			assert.Equal(t, 150+cdsLen-1, stops[0].End)
		}
	}
}

func TestBuild_ReverseStrandCodons(t *testing.T) {
	root := Build(coding(feature.Reverse), Flags{Codon: true})

	// On the reverse strand the start codon sits at the genomic high end.
	start := childrenOfType(root, TypeStartCodon)
	require.Len(t, start, 1)
	assert.Equal(t, int64(4498), start[0].Start)
	assert.Equal(t, int64(4500), start[0].End)

	stop := childrenOfType(root, TypeStopCodon)
	require.Len(t, stop, 1)
	assert.Equal(t, int64(1500), stop[0].Start)
}

func TestBuild_NoncodingHasNoCDSChildren(t *testing.T) {
	t.Run("zero cds", func(t *testing.T) {
		tr := coding(feature.Forward)
		tr.CDSStart, tr.CDSEnd = 0, 0
		root := Build(tr, Flags{Exon: true, CDS: true, UTR: true, Codon: true})

		assert.Equal(t, TypeTranscript, root.Type)
		assert.Empty(t, childrenOfType(root, TypeCDS))
		assert.Empty(t, childrenOfType(root, TypeUTR5))
		assert.Empty(t, childrenOfType(root, TypeUTR3))
		assert.Empty(t, childrenOfType(root, TypeStartCodon))
		assert.Len(t, childrenOfType(root, TypeExon), 2)
	})

	t.Run("inverted cds bounds", func(t *testing.T) {
		tr := coding(feature.Forward)
		tr.CDSStart, tr.CDSEnd = 2001, 2000
		root := Build(tr, Flags{CDS: true})
		assert.Equal(t, TypeTranscript, root.Type)
		assert.Empty(t, root.Children)
	})
}

func TestBuild_CDSBoundaryOnExonBoundary(t *testing.T) {
	// CDS covers exon 2 exactly: exon 1 is pure UTR, exon 2 pure CDS,
	// and no zero-length children appear.
	tr := Transcript{
		Name:     "tx2",
		SeqID:    "chr2",
		Strand:   feature.Forward,
		Start:    100,
		End:      900,
		CDSStart: 500,
		CDSEnd:   900,
		Exons:    [][2]int64{{100, 300}, {500, 900}},
	}
	root := Build(tr, Flags{CDS: true, UTR: true})

	cds := childrenOfType(root, TypeCDS)
	require.Len(t, cds, 1)
	assert.Equal(t, int64(500), cds[0].Start)
	assert.Equal(t, int64(900), cds[0].End)

	utr := childrenOfType(root, TypeUTR5)
	require.Len(t, utr, 1)
	assert.Equal(t, int64(100), utr[0].Start)
	assert.Equal(t, int64(300), utr[0].End)

	for _, c := range root.Children {
		assert.Positive(t, c.Length())
	}
}

func TestBuild_SortsUnorderedExons(t *testing.T) {
	tr := coding(feature.Forward)
	tr.Exons = [][2]int64{{3000, 5000}, {1000, 2000}}
	root := Build(tr, Flags{Exon: true})

	exons := childrenOfType(root, TypeExon)
	require.Len(t, exons, 2)
	assert.Equal(t, int64(1000), exons[0].Start)
	assert.Equal(t, "tx1.exon1", exons[0].ID)
	assert.Equal(t, "tx1.exon2", exons[1].ID)
}

func TestBuild_ReverseExonNumbering(t *testing.T) {
	tr := coding(feature.Reverse)
	root := Build(tr, Flags{Exon: true})

	exons := childrenOfType(root, TypeExon)
	require.Len(t, exons, 2)
	// Children sorted along the reverse strand, so exon1 comes first
	// and is the genomically-rightmost exon.
	assert.Equal(t, "tx1.exon1", exons[0].ID)
	assert.Equal(t, int64(3000), exons[0].Start)
}

func TestBuild_RootTypeOverride(t *testing.T) {
	tr := coding(feature.Forward)
	tr.CDSStart, tr.CDSEnd = 0, 0
	tr.RootType = "gappedPeak"
	tr.ExonType = "peak"
	root := Build(tr, Flags{Exon: true})

	assert.Equal(t, "gappedPeak", root.Type)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "peak", root.Children[0].Type)
	assert.Equal(t, "tx1.peak1", root.Children[0].ID)
}
