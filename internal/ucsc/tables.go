package ucsc

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/featparse/internal/feature"
)

// AuxTables holds the optional UCSC cross-reference tables. Loaded tables
// attach extra attributes to decoded transcripts; assembly never alters
// them.
type AuxTables struct {
	Summary map[string]string // refSeqSummary: accession -> summary text
	Status  map[string]string // refSeqStatus: accession -> review status
	Xref    map[string]string // kgXref: known-gene id -> gene symbol
}

// annotate attaches any cross-reference data for the transcript name.
// A kgXref gene symbol also becomes the gene_name attribute so knownGene
// ids group into genes the same way refFlat's gene column does.
func (a *AuxTables) annotate(f *feature.Feature, name string) {
	if s, ok := a.Summary[name]; ok {
		f.Attributes.Set("summary", s)
	}
	if s, ok := a.Status[name]; ok {
		f.Attributes.Set("status", s)
	}
	if sym, ok := a.Xref[name]; ok && !f.Attributes.Has("gene_name") {
		f.Attributes.Set("gene_name", sym)
	}
}

// Column offsets within each auxiliary table.
const (
	refSeqSummaryAccCol   = 0
	refSeqSummaryTextCol  = 2
	refSeqStatusAccCol    = 0
	refSeqStatusStatusCol = 1
	kgXrefIDCol           = 0
	kgXrefGeneSymbolCol   = 4
)

// LoadRefSeqSummary reads a UCSC refSeqSummary dump (accession,
// completeness, summary).
func LoadRefSeqSummary(path string) (map[string]string, error) {
	return loadTwoColumns(path, refSeqSummaryAccCol, refSeqSummaryTextCol)
}

// LoadRefSeqStatus reads a UCSC refSeqStatus dump (accession, status,
// molecule type).
func LoadRefSeqStatus(path string) (map[string]string, error) {
	return loadTwoColumns(path, refSeqStatusAccCol, refSeqStatusStatusCol)
}

// LoadKgXref reads a UCSC kgXref dump and maps known-gene ids to gene
// symbols.
func LoadKgXref(path string) (map[string]string, error) {
	return loadTwoColumns(path, kgXrefIDCol, kgXrefGeneSymbolCol)
}

// loadTwoColumns reads a tab-delimited table, optionally gzipped, keeping
// the key and value columns. Comment lines are skipped; rows too short to
// carry the value column are ignored rather than fatal, since these
// tables are enrichment data.
func loadTwoColumns(path string, keyCol, valCol int) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= valCol || len(fields) <= keyCol {
			continue
		}
		out[fields[keyCol]] = fields[valCol]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan table: %w", err)
	}
	return out, nil
}
