// Package parser drives annotation file parsing: it owns the open
// stream, the detected dialect, the identifier table, and the
// per-chromosome extent registry, and exposes the streaming and
// materializing retrieval contracts.
package parser

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/featparse/internal/assemble"
	"github.com/inodb/featparse/internal/bed"
	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
	"github.com/inodb/featparse/internal/gff"
	"github.com/inodb/featparse/internal/ucsc"
)

// ErrModeConflict reports mixing the streaming and materializing
// retrieval modes on one session, a programming-contract violation.
var ErrModeConflict = errors.New("cannot mix streaming and materializing retrieval on one session")

// Options is the fixed set of configuration switches accepted at session
// construction.
type Options struct {
	DoGene  bool // assemble gene-level parents; ignored for BED
	DoExon  bool
	DoCDS   bool
	DoUTR   bool
	DoCodon bool

	Source  string          // override the source tag (default: file base name)
	Factory feature.Factory // substitute the concrete node constructor

	// UCSC-only auxiliary table paths, loaded at construction.
	RefSeqSummary string
	RefSeqStatus  string
	KgXref        string
}

// DefaultOptions returns the switch defaults: gene assembly on,
// sub-feature emission off.
func DefaultOptions() Options {
	return Options{DoGene: true}
}

type mode int

const (
	modeNone mode = iota
	modeStreaming
	modeMaterializing
)

// Session parses one annotation file. Sessions are single-threaded and
// share no state with each other; parse multiple files with one session
// each.
type Session struct {
	path     string
	flavor   format.Flavor
	filetype format.Filetype
	opts     Options
	logger   *zap.Logger

	file       *os.File
	gzipReader *gzip.Reader
	scanner    *bufio.Scanner
	lineNum    int

	mode      mode
	exhausted bool

	bedDec  *bed.Decoder
	ucscDec *ucsc.Decoder
	gffDec  *gff.Decoder
	linker  *gff.Linker

	seqIDs    map[string]int64 // chromosome -> greatest end observed
	loaded    map[string]*feature.Feature
	top       []*feature.Feature
	comments  []string
	orphans   int
	idCounts  map[string]int
	streamIDs map[string]struct{} // ids seen so far while streaming GFF
}

// New opens path, classifies its dialect, and prepares the matching
// decoder. The classification is cached on the session; re-tasting is a
// no-op through Taste.
func New(path string, opts Options) (*Session, error) {
	flavor, filetype, err := format.Detect(path)
	if err != nil {
		return nil, err
	}

	s := &Session{
		path:     path,
		flavor:   flavor,
		filetype: filetype,
		opts:     opts,
		logger:   zap.NewNop(),
		seqIDs:    make(map[string]int64),
		loaded:    make(map[string]*feature.Feature),
		idCounts:  make(map[string]int),
		streamIDs: make(map[string]struct{}),
	}
	if s.opts.Source == "" {
		s.opts.Source = baseName(path)
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	if err := s.buildDecoder(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// baseName strips the directory and any compression suffix.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, ".gz")
}

// open prepares the buffered line reader, detecting gzip by magic bytes.
func (s *Session) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open annotation file: %w", err)
	}
	s.file = f

	magic := make([]byte, 2)
	if _, err := f.Read(magic); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return fmt.Errorf("seek annotation file: %w", err)
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("create gzip reader: %w", err)
		}
		s.gzipReader = gz
		s.scanner = bufio.NewScanner(gz)
	} else {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return fmt.Errorf("seek annotation file: %w", err)
		}
		s.scanner = bufio.NewScanner(f)
	}
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return nil
}

// buildDecoder selects the decoder for the detected flavor and loads any
// requested auxiliary tables.
func (s *Session) buildDecoder() error {
	flags := assemble.Flags{
		Exon:  s.opts.DoExon,
		CDS:   s.opts.DoCDS,
		UTR:   s.opts.DoUTR,
		Codon: s.opts.DoCodon,
	}
	switch s.flavor {
	case format.FlavorBed:
		s.bedDec = &bed.Decoder{
			Filetype: s.filetype,
			Source:   s.opts.Source,
			Flags:    flags,
			Factory:  s.opts.Factory,
		}
	case format.FlavorUCSC:
		dec := &ucsc.Decoder{
			Filetype: s.filetype,
			Source:   s.opts.Source,
			Flags:    flags,
			Factory:  s.opts.Factory,
		}
		if s.opts.RefSeqSummary != "" {
			m, err := ucsc.LoadRefSeqSummary(s.opts.RefSeqSummary)
			if err != nil {
				return fmt.Errorf("load refSeqSummary: %w", err)
			}
			dec.Aux.Summary = m
		}
		if s.opts.RefSeqStatus != "" {
			m, err := ucsc.LoadRefSeqStatus(s.opts.RefSeqStatus)
			if err != nil {
				return fmt.Errorf("load refSeqStatus: %w", err)
			}
			dec.Aux.Status = m
		}
		if s.opts.KgXref != "" {
			m, err := ucsc.LoadKgXref(s.opts.KgXref)
			if err != nil {
				return fmt.Errorf("load kgXref: %w", err)
			}
			dec.Aux.Xref = m
		}
		s.ucscDec = dec
	case format.FlavorGFF:
		s.gffDec = &gff.Decoder{
			Filetype: s.filetype,
			Source:   s.opts.Source,
			DoGene:   s.opts.DoGene,
			Factory:  s.opts.Factory,
		}
		s.linker = gff.NewLinker(s.filetype, s.opts.DoGene, s.opts.Factory)
	}
	return nil
}

// SetLogger injects a logger for orphan accounting and progress; the
// default discards everything.
func (s *Session) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Taste returns the cached classification.
func (s *Session) Taste() (format.Flavor, format.Filetype) {
	return s.flavor, s.filetype
}

// Path returns the input path.
func (s *Session) Path() string {
	return s.path
}

// readLine advances to the next line, retaining comment lines verbatim.
// It returns "", false at end of stream.
func (s *Session) readLine() (string, bool, error) {
	for s.scanner.Scan() {
		s.lineNum++
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if format.IsComment(line) {
			s.comments = append(s.comments, line)
			if s.flavor == format.FlavorGFF && strings.HasPrefix(line, "###") {
				s.reconcile()
			}
			continue
		}
		return line, true, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read %s: %w", s.path, err)
	}
	return "", false, nil
}

// reconcile runs one orphan sweep at a GFF3 "###" boundary or at end of
// stream. The count is reported in aggregate, never per line.
func (s *Session) reconcile() {
	if s.linker == nil {
		return
	}
	if dropped := s.linker.Reconcile(); dropped > 0 {
		s.orphans += dropped
		s.logger.Warn("dropped orphaned children",
			zap.String("path", s.path),
			zap.Int("count", dropped))
	}
}

// registerExtent records the greatest end coordinate observed per
// chromosome.
func (s *Session) registerExtent(f *feature.Feature) {
	if f.End > s.seqIDs[f.SeqID] {
		s.seqIDs[f.SeqID] = f.End
	}
}

// dedupeID makes a top-level identifier unique within the session by
// numeric suffixing. GFF3 never reaches here; its collisions are fatal.
func (s *Session) dedupeID(id string) string {
	n, seen := s.idCounts[id]
	if !seen {
		s.idCounts[id] = 0
		return id
	}
	n++
	s.idCounts[id] = n
	return fmt.Sprintf("%s.%d", id, n)
}

// register indexes a completed top-level tree by identifier and extent.
func (s *Session) register(f *feature.Feature) {
	s.registerExtent(f)
	f.Walk(func(n *feature.Feature) {
		if n.ID == "" {
			return
		}
		if _, ok := s.loaded[n.ID]; !ok {
			s.loaded[n.ID] = n
		}
	})
}

// decodeLine dispatches one data line to the flavor's decoder. For the
// GFF flavor the returned record still carries unresolved structure.
func (s *Session) decodeLine(line string) (*feature.Feature, *gff.Record, error) {
	switch s.flavor {
	case format.FlavorBed:
		f, err := s.bedDec.Decode(line, s.lineNum)
		return f, nil, err
	case format.FlavorUCSC:
		f, err := s.ucscDec.Decode(line, s.lineNum)
		return f, nil, err
	default:
		rec, err := s.gffDec.Decode(line, s.lineNum)
		if err != nil {
			return nil, nil, err
		}
		return rec.Feature, rec, nil
	}
}

// Next decodes and returns one structurally-complete unit, advancing the
// stream. It returns nil, nil once input is exhausted, closing the
// underlying handle. Streaming never retries forward references: a GFF
// line referencing a parent not yet seen counts as an orphan immediately.
// Parents already seen are not counted, but the child is still returned
// standalone.
func (s *Session) Next() (*feature.Feature, error) {
	if s.mode == modeMaterializing {
		return nil, fmt.Errorf("%w: Next after materialization began", ErrModeConflict)
	}
	s.mode = modeStreaming
	if s.exhausted {
		return nil, nil
	}

	line, ok, err := s.readLine()
	if err != nil {
		return nil, err
	}
	if !ok {
		s.exhausted = true
		s.closeHandle()
		return nil, nil
	}

	f, rec, err := s.decodeLine(line)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec.ID != "" {
			s.streamIDs[rec.ID] = struct{}{}
		}
		for _, pid := range rec.Parents {
			if _, ok := s.streamIDs[pid]; !ok {
				s.orphans++
			}
		}
		if f.ID == "" {
			f.ID = s.dedupeID(f.CoordString())
		}
	} else {
		f.ID = s.dedupeID(f.ID)
	}
	s.registerExtent(f)
	return f, nil
}

// Load drains the entire stream, fully resolving structure including
// orphan reconciliation, and populates the materialized registries. It
// is idempotent: calling again after exhaustion returns the cached
// result.
func (s *Session) Load() error {
	if s.mode == modeStreaming {
		return fmt.Errorf("%w: Load after streaming began", ErrModeConflict)
	}
	if s.mode == modeMaterializing {
		return nil
	}
	s.mode = modeMaterializing

	for {
		line, ok, err := s.readLine()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		f, rec, err := s.decodeLine(line)
		if err != nil {
			return err
		}
		if rec != nil {
			if err := s.linker.Add(rec); err != nil {
				return err
			}
			continue
		}
		f.ID = s.dedupeID(f.ID)
		s.top = append(s.top, f)
		s.register(f)
	}

	if s.flavor == format.FlavorGFF {
		s.reconcile()
		for _, root := range s.linker.Finalize() {
			// Nodes that never declared an ID attribute get the
			// coordinate form, suffixed on collision.
			if root.ID == "" {
				root.ID = s.dedupeID(root.CoordString())
			}
			s.top = append(s.top, root)
			s.register(root)
		}
	}
	if s.flavor == format.FlavorUCSC && s.opts.DoGene {
		s.groupGenes()
	}

	s.exhausted = true
	s.closeHandle()
	s.logger.Info("materialized annotation file",
		zap.String("path", s.path),
		zap.String("filetype", string(s.filetype)),
		zap.Int("topFeatures", len(s.top)),
		zap.Int("orphans", s.orphans))
	return nil
}

// groupGenes wraps UCSC transcripts sharing a gene symbol on the same
// chromosome into synthesized gene parents, in first-appearance order.
func (s *Session) groupGenes() {
	factory := s.opts.Factory
	if factory == nil {
		factory = feature.New
	}
	genes := make(map[string]*feature.Feature)
	var out []*feature.Feature
	for _, t := range s.top {
		key := ucsc.GeneName(t) + "\x00" + t.SeqID
		g, ok := genes[key]
		if !ok {
			g = factory()
			g.ID = s.dedupeID(ucsc.GeneName(t))
			g.Name = ucsc.GeneName(t)
			g.SeqID = t.SeqID
			g.Strand = t.Strand
			g.Source = t.Source
			g.Type = "gene"
			genes[key] = g
			out = append(out, g)
			s.loaded[g.ID] = g
		}
		g.AddChild(t)
	}
	for _, g := range out {
		g.SortChildren()
	}
	s.top = out
}

// TopFeatures returns the materialized top-level trees in input order,
// triggering a full Load when necessary.
func (s *Session) TopFeatures() ([]*feature.Feature, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s.top, nil
}

// Fetch looks up a materialized node by identifier, implicitly
// triggering a full Load when not yet done.
func (s *Session) Fetch(id string) (*feature.Feature, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	f, ok := s.loaded[id]
	if !ok {
		return nil, fmt.Errorf("no feature with id %q in %s", id, s.path)
	}
	return f, nil
}

// SeqIDLengths returns the greatest end coordinate observed per
// chromosome, derived purely from feature extents.
func (s *Session) SeqIDLengths() map[string]int64 {
	return s.seqIDs
}

// Comments returns the retained non-data lines in input order.
func (s *Session) Comments() []string {
	return s.comments
}

// Orphans returns the aggregate count of unresolvable parent references.
func (s *Session) Orphans() int {
	return s.orphans
}

// closeHandle releases the stream; safe to call repeatedly.
func (s *Session) closeHandle() {
	if s.gzipReader != nil {
		s.gzipReader.Close()
		s.gzipReader = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
}

// Close drops the session. Always safe between calls.
func (s *Session) Close() error {
	s.closeHandle()
	return nil
}
