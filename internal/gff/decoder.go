// Package gff decodes GFF3 and GTF lines and reconstructs parent/child
// structure. GFF3 links children through explicit ID/Parent attributes;
// GTF groups features through the transcript_id/gene_id convention.
// Coordinates are natively 1-based and closed, so no conversion happens.
package gff

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
)

// Column offsets of the 9-column layout.
const (
	colSeqID = iota
	colSource
	colType
	colStart
	colEnd
	colScore
	colStrand
	colPhase
	colAttributes
)

// Record is one decoded line plus its structural hints. The working
// identifier and parent references are resolved by the Linker, never by
// the decoder itself.
type Record struct {
	Feature      *feature.Feature
	ID           string   // GFF3 ID attribute, or GTF gene_id/transcript_id
	Parents      []string // pending links, resolved later
	GeneID       string   // GTF only
	TranscriptID string   // GTF only
}

// Decoder turns one GFF3 or GTF line into a Record.
type Decoder struct {
	Filetype format.Filetype // GFF3 or GTF
	Source   string          // fallback when column 2 is "."
	DoGene   bool            // GTF: nest transcripts under gene nodes
	Factory  feature.Factory
}

// Decode parses one 9-column data line.
func (d *Decoder) Decode(line string, lineNum int) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 9 {
		return nil, format.Malformed(lineNum, line, "expected 9 columns, found %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[colStart], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid start coordinate %q", fields[colStart])
	}
	end, err := strconv.ParseInt(fields[colEnd], 10, 64)
	if err != nil {
		return nil, format.Malformed(lineNum, line, "invalid end coordinate %q", fields[colEnd])
	}

	factory := d.Factory
	if factory == nil {
		factory = feature.New
	}
	f := factory()
	f.SeqID = fields[colSeqID]
	f.Start = start
	f.End = end
	f.Strand = feature.ParseStrand(fields[colStrand])
	f.Type = fields[colType]
	f.Source = fields[colSource]
	if f.Source == "." || f.Source == "" {
		f.Source = d.Source
	}
	if fields[colScore] != "." && fields[colScore] != "" {
		if v, err := strconv.ParseFloat(fields[colScore], 64); err == nil {
			f.SetScore(v)
		}
	}
	if fields[colPhase] != "." && fields[colPhase] != "" {
		f.Attributes.Set("phase", fields[colPhase])
	}

	rec := &Record{Feature: f}
	if d.Filetype == format.GTF {
		d.decodeGTFAttributes(rec, fields[colAttributes])
	} else {
		if err := d.decodeGFF3Attributes(rec, fields[colAttributes], lineNum, line); err != nil {
			return nil, err
		}
	}
	f.ID = rec.ID
	if f.Name == "" {
		f.Name = rec.ID
	}
	return rec, nil
}

// decodeGFF3Attributes parses the key=value;... column. Values are
// URL-unescaped and may be multi-valued via commas.
func (d *Decoder) decodeGFF3Attributes(rec *Record, attrs string, lineNum int, line string) error {
	if attrs == "." || attrs == "" {
		return nil
	}
	f := rec.Feature
	for _, pair := range strings.Split(attrs, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, "=")
		if idx < 0 {
			return format.Malformed(lineNum, line, "attribute %q is not a key=value pair", pair)
		}
		key := pair[:idx]
		for _, raw := range strings.Split(pair[idx+1:], ",") {
			value := unescape(raw)
			switch key {
			case "ID":
				rec.ID = value
			case "Parent":
				rec.Parents = append(rec.Parents, value)
			case "Name":
				f.Name = value
			default:
				f.Attributes.Add(key, value)
			}
		}
	}
	return nil
}

// decodeGTFAttributes parses the key "value"; column. The working
// identifier comes from gene_id for gene lines, transcript_id otherwise;
// sub-features link to their enclosing transcript (or gene when no
// transcript_id is present).
func (d *Decoder) decodeGTFAttributes(rec *Record, attrs string) {
	f := rec.Feature
	for _, part := range strings.Split(attrs, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, " ")
		if idx < 0 {
			continue
		}
		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
		switch key {
		case "gene_id":
			rec.GeneID = value
		case "transcript_id":
			rec.TranscriptID = value
		case "gene_name":
			if f.Type == "gene" && f.Name == "" {
				f.Name = value
			}
			f.Attributes.Add(key, value)
		default:
			f.Attributes.Add(key, value)
		}
	}

	switch f.Type {
	case "gene":
		rec.ID = rec.GeneID
	case "transcript", "mRNA":
		rec.ID = rec.TranscriptID
		if d.DoGene && rec.GeneID != "" {
			rec.Parents = []string{rec.GeneID}
		}
	default:
		if rec.TranscriptID != "" {
			rec.Parents = []string{rec.TranscriptID}
		} else if rec.GeneID != "" {
			rec.Parents = []string{rec.GeneID}
		}
	}
}

// unescape reverses GFF3 percent-encoding; invalid escapes keep the raw
// text rather than failing the line.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}
