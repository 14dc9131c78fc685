package ucsc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/featparse/internal/assemble"
	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
)

const genePredLine = "NM_001\tchr1\t+\t1000\t9000\t1200\t8800\t2\t1000,5000,\t2000,9000,"

func TestDecode_GenePred(t *testing.T) {
	d := &Decoder{
		Filetype: format.GenePred,
		Source:   "genes.txt",
		Flags:    assemble.Flags{Exon: true, CDS: true, UTR: true},
	}
	f, err := d.Decode(genePredLine, 1)
	require.NoError(t, err)

	assert.Equal(t, "NM_001", f.ID)
	assert.Equal(t, "chr1", f.SeqID)
	assert.Equal(t, int64(1000), f.Start)
	assert.Equal(t, int64(9000), f.End)
	assert.Equal(t, feature.Forward, f.Strand)
	assert.Equal(t, assemble.TypeMRNA, f.Type)
	assert.Equal(t, "genes.txt", f.Source)

	var exons, cds []*feature.Feature
	for _, c := range f.Children {
		switch c.Type {
		case assemble.TypeExon:
			exons = append(exons, c)
		case assemble.TypeCDS:
			cds = append(cds, c)
		}
	}
	require.Len(t, exons, 2)
	assert.Equal(t, int64(1000), exons[0].Start)
	assert.Equal(t, int64(2000), exons[0].End)

	require.Len(t, cds, 2)
	assert.Equal(t, int64(1200), cds[0].Start)
	assert.Equal(t, int64(8800), cds[1].End)
}

func TestDecode_NoncodingTranscript(t *testing.T) {
	// cdsStart == cdsEnd marks a noncoding transcript.
	line := "NR_046018\tchr1\t+\t11873\t14409\t14409\t14409\t3\t11873,12612,13220,\t12227,12721,14409,"
	d := &Decoder{Filetype: format.GenePred, Flags: assemble.Flags{Exon: true, CDS: true}}
	f, err := d.Decode(line, 1)
	require.NoError(t, err)

	assert.Equal(t, assemble.TypeTranscript, f.Type)
	assert.Len(t, f.Children, 3)
	for _, c := range f.Children {
		assert.Equal(t, assemble.TypeExon, c.Type)
	}
}

func TestDecode_RefFlatGeneColumn(t *testing.T) {
	line := "TP53\tNM_000546\tchr17\t-\t7668402\t7687550\t7669609\t7676594\t2\t7668402,7675000,\t7670715,7687550,"
	d := &Decoder{Filetype: format.RefFlat}
	f, err := d.Decode(line, 1)
	require.NoError(t, err)

	assert.Equal(t, "NM_000546", f.ID)
	assert.Equal(t, feature.Reverse, f.Strand)
	assert.Equal(t, "TP53", f.Attributes.Get("gene_name"))
	assert.Equal(t, "TP53", GeneName(f))
}

func TestDecode_KnownGene(t *testing.T) {
	line := "uc001aaa.3\tchr1\t+\t11873\t14409\t11873\t11873\t3\t11873,12612,13220,\t12227,12721,14409,\t\tuc001aaa.3"
	d := &Decoder{Filetype: format.KnownGene}
	f, err := d.Decode(line, 1)
	require.NoError(t, err)
	assert.Equal(t, "uc001aaa.3", f.ID)
	assert.Equal(t, assemble.TypeTranscript, f.Type)
}

func TestDecode_GenePredExtBin(t *testing.T) {
	line := "585\tNM_001\tchr1\t+\t1000\t9000\t1200\t8800\t2\t1000,5000,\t2000,9000,\t0\tGENE1\tcmpl\tcmpl\t0,2,"
	d := &Decoder{Filetype: format.GenePredExtBin}
	f, err := d.Decode(line, 1)
	require.NoError(t, err)
	assert.Equal(t, "NM_001", f.ID)
	assert.Equal(t, "GENE1", f.Attributes.Get("gene_name"))
	assert.Equal(t, "GENE1", GeneName(f))
}

func TestDecode_ColumnCountMismatchIsFatal(t *testing.T) {
	d := &Decoder{Filetype: format.GenePred}
	_, err := d.Decode("NM_001\tchr1\t+\t1000\t9000", 12)
	require.Error(t, err)
	assert.ErrorIs(t, err, format.ErrMalformedLine)

	var lineErr *format.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 12, lineErr.Line)
}

func TestDecode_ExonCountMismatchIsFatal(t *testing.T) {
	line := "NM_001\tchr1\t+\t1000\t9000\t1200\t8800\t3\t1000,5000,\t2000,9000,"
	d := &Decoder{Filetype: format.GenePred}
	_, err := d.Decode(line, 1)
	assert.ErrorIs(t, err, format.ErrMalformedLine)
}

func TestDecode_TrailingCommasDiscarded(t *testing.T) {
	d := &Decoder{Filetype: format.GenePred, Flags: assemble.Flags{Exon: true}}
	f, err := d.Decode(genePredLine, 1)
	require.NoError(t, err)
	assert.Len(t, f.Children, 2)
}

func TestAuxTables_Annotate(t *testing.T) {
	dir := t.TempDir()
	sumPath := filepath.Join(dir, "refSeqSummary.txt")
	require.NoError(t, os.WriteFile(sumPath,
		[]byte("#acc\tcompleteness\tsummary\nNM_001\tcomplete\tThis gene encodes a protein.\n"), 0o644))
	statPath := filepath.Join(dir, "refSeqStatus.txt")
	require.NoError(t, os.WriteFile(statPath,
		[]byte("NM_001\tReviewed\tmRNA\n"), 0o644))

	summary, err := LoadRefSeqSummary(sumPath)
	require.NoError(t, err)
	status, err := LoadRefSeqStatus(statPath)
	require.NoError(t, err)

	d := &Decoder{
		Filetype: format.GenePred,
		Aux:      AuxTables{Summary: summary, Status: status},
	}
	f, err := d.Decode(genePredLine, 1)
	require.NoError(t, err)

	assert.Equal(t, "This gene encodes a protein.", f.Attributes.Get("summary"))
	assert.Equal(t, "Reviewed", f.Attributes.Get("status"))
}

func TestLoadKgXref_SymbolBecomesGeneName(t *testing.T) {
	dir := t.TempDir()
	xrefPath := filepath.Join(dir, "kgXref.txt")
	require.NoError(t, os.WriteFile(xrefPath,
		[]byte("uc001aaa.3\tNR_046018\t\t\tDDX11L1\tNR_046018\t\tdead box polypeptide\n"), 0o644))

	xref, err := LoadKgXref(xrefPath)
	require.NoError(t, err)

	line := "uc001aaa.3\tchr1\t+\t11873\t14409\t11873\t11873\t3\t11873,12612,13220,\t12227,12721,14409,\t\tuc001aaa.3"
	d := &Decoder{Filetype: format.KnownGene, Aux: AuxTables{Xref: xref}}
	f, err := d.Decode(line, 1)
	require.NoError(t, err)

	assert.Equal(t, "DDX11L1", f.Attributes.Get("gene_name"))
	assert.Equal(t, "DDX11L1", GeneName(f))
}
