// Package format classifies annotation files into a flavor and an exact
// filetype before parsing begins. Classification uses the file extension
// first and falls back to sniffing the first data line.
package format

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Flavor is the coarse format family.
type Flavor string

const (
	FlavorBed  Flavor = "bed"
	FlavorGFF  Flavor = "gff"
	FlavorUCSC Flavor = "ucsc"
)

// Filetype is the exact sub-dialect within a flavor.
type Filetype string

const (
	BedGraph   Filetype = "bedGraph"
	NarrowPeak Filetype = "narrowPeak"
	BroadPeak  Filetype = "broadPeak"
	GappedPeak Filetype = "gappedPeak"

	GFF3 Filetype = "gff3"
	GTF  Filetype = "gtf"

	GenePred       Filetype = "genePred"
	RefFlat        Filetype = "refFlat"
	KnownGene      Filetype = "knownGene"
	GenePredExt    Filetype = "genePredExt"
	GenePredExtBin Filetype = "genePredExtBin"
)

// Bed returns the generic filetype for an n-column BED file (bed3..bed12).
func Bed(n int) Filetype {
	return Filetype(fmt.Sprintf("bed%d", n))
}

// FieldCount returns the expected tab-delimited column count for filetypes
// with a fixed layout, or 0 when the type is generic (bedN covers its own
// count in the name).
func FieldCount(ft Filetype) int {
	switch ft {
	case BedGraph:
		return 4
	case BroadPeak:
		return 9
	case NarrowPeak:
		return 10
	case GappedPeak:
		return 15
	case GFF3, GTF:
		return 9
	case GenePred:
		return 10
	case RefFlat:
		return 11
	case KnownGene:
		return 12
	case GenePredExt:
		return 15
	case GenePredExtBin:
		return 16
	}
	var n int
	if _, err := fmt.Sscanf(string(ft), "bed%d", &n); err == nil {
		return n
	}
	return 0
}

// FlavorOf returns the flavor a filetype belongs to.
func FlavorOf(ft Filetype) Flavor {
	switch ft {
	case GFF3, GTF:
		return FlavorGFF
	case GenePred, RefFlat, KnownGene, GenePredExt, GenePredExtBin:
		return FlavorUCSC
	}
	return FlavorBed
}

// Detect classifies the file at path, transparently decompressing gzip.
// The extension is consulted first; ambiguous extensions (.bed, .txt, or
// none) fall back to counting fields on the first data line.
func Detect(path string) (Flavor, Filetype, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".gz" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}

	switch ext {
	case ".narrowpeak":
		return FlavorBed, NarrowPeak, nil
	case ".broadpeak":
		return FlavorBed, BroadPeak, nil
	case ".gappedpeak":
		return FlavorBed, GappedPeak, nil
	case ".bedgraph", ".bdg":
		return FlavorBed, BedGraph, nil
	case ".gff", ".gff3":
		return FlavorGFF, GFF3, nil
	case ".gtf":
		return FlavorGFF, GTF, nil
	}

	line, err := firstDataLine(path)
	if err != nil {
		return "", "", err
	}
	if line == "" {
		return "", "", &UnrecognizedError{Path: path, Reason: "no data lines"}
	}
	fields := strings.Split(line, "\t")

	switch ext {
	case ".bed":
		return tasteBed(path, fields)
	case ".genepred":
		if ft, ok := tasteUCSC(fields); ok {
			return FlavorUCSC, ft, nil
		}
		return "", "", &UnrecognizedError{Path: path, Reason: fmt.Sprintf("%d columns do not match any genePred table", len(fields))}
	}

	// Generic extension (.txt or unknown): try each family in turn.
	if ft, ok := tasteUCSC(fields); ok {
		return FlavorUCSC, ft, nil
	}
	if ft, ok := tasteGFF(fields); ok {
		return FlavorGFF, ft, nil
	}
	return tasteBed(path, fields)
}

// firstDataLine returns the first non-comment, non-track line. Track,
// browser, and # lines are skipped during sniffing.
func firstDataLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || IsComment(line) {
			continue
		}
		return line, nil
	}
	return "", scanner.Err()
}

// IsComment reports whether a line is a non-data line that should be
// retained verbatim rather than decoded.
func IsComment(line string) bool {
	return strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

// tasteBed maps a field slice to a bed-family filetype. Peak shapes are
// recognized before falling back to the generic bed<N> types.
func tasteBed(path string, fields []string) (Flavor, Filetype, error) {
	n := len(fields)
	switch {
	case n == 15 && isBlockList(fields[13]) && isBlockList(fields[14]):
		return FlavorBed, GappedPeak, nil
	case n == 10 && hasPeakStats(fields[6:10]):
		return FlavorBed, NarrowPeak, nil
	case n == 9 && hasPeakStats(fields[6:9]):
		return FlavorBed, BroadPeak, nil
	case n == 4 && isFloat(fields[3]) && isInt(fields[1]) && isInt(fields[2]):
		return FlavorBed, BedGraph, nil
	case n >= 3 && n <= 12 && isInt(fields[1]) && isInt(fields[2]):
		return FlavorBed, Bed(n), nil
	}
	return "", "", &UnrecognizedError{Path: path, Reason: fmt.Sprintf("%d columns do not match any known dialect", n)}
}

// tasteUCSC matches a field slice against the genePred table family.
// Each table is identified by its column count plus a strand column,
// integer transcript bounds, and comma-separated exon lists at the
// dialect's fixed offsets.
func tasteUCSC(fields []string) (Filetype, bool) {
	shaped := func(strand, txStart, exonStarts int) bool {
		return isStrand(fields[strand]) &&
			isInt(fields[txStart]) && isInt(fields[txStart+1]) &&
			isBlockList(fields[exonStarts]) && isBlockList(fields[exonStarts+1])
	}
	switch len(fields) {
	case 16:
		if shaped(3, 4, 9) {
			return GenePredExtBin, true
		}
	case 15:
		if shaped(2, 3, 8) {
			return GenePredExt, true
		}
	case 12:
		if shaped(2, 3, 8) {
			return KnownGene, true
		}
	case 11:
		if shaped(3, 4, 9) {
			return RefFlat, true
		}
	case 10:
		if shaped(2, 3, 8) {
			return GenePred, true
		}
	}
	return "", false
}

func isStrand(s string) bool {
	return s == "+" || s == "-" || s == "."
}

// tasteGFF recognizes the 9-column attributed layouts. GFF3 attributes use
// key=value pairs; GTF uses key "value" pairs.
func tasteGFF(fields []string) (Filetype, bool) {
	if len(fields) != 9 || !isInt(fields[3]) || !isInt(fields[4]) || isInt(fields[2]) {
		return "", false
	}
	attrs := fields[8]
	if strings.Contains(attrs, " \"") {
		return GTF, true
	}
	if strings.Contains(attrs, "=") || attrs == "." {
		return GFF3, true
	}
	return "", false
}

// hasPeakStats reports whether the trailing columns look like the
// signalValue/pValue/qValue[/peak] stats of narrowPeak and broadPeak.
func hasPeakStats(fields []string) bool {
	for _, f := range fields {
		if !isFloat(f) {
			return false
		}
	}
	return true
}

// isBlockList reports whether s is a comma-separated list of non-negative
// integers, as found in exonStarts/exonEnds and blockSizes/blockStarts
// columns. Trailing commas are conventional and accepted.
func isBlockList(s string) bool {
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ",") {
		if !isInt(part) {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
