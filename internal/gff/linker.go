package gff

import (
	"fmt"

	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
)

// pending is a decoded record whose parent reference has not resolved
// yet (a forward reference, possibly across sequence boundaries).
type pending struct {
	rec      *Record
	parents  []string // still-unresolved parent ids
	attached bool     // node already attached to at least one parent
}

// Linker builds parent/child trees in two phases: phase 1 registers
// nodes in an identifier table and queues unresolved children; phase 2
// (Reconcile) retries the queue once per reconciliation boundary — a
// GFF3 "###" directive or end of stream.
type Linker struct {
	Filetype format.Filetype
	DoGene   bool
	Factory  feature.Factory

	ids     map[string]*feature.Feature
	roots   []*feature.Feature
	queue   []*pending
	dropped int
}

// NewLinker returns a linker for one parse session.
func NewLinker(ft format.Filetype, doGene bool, factory feature.Factory) *Linker {
	if factory == nil {
		factory = feature.New
	}
	return &Linker{
		Filetype: ft,
		DoGene:   doGene,
		Factory:  factory,
		ids:      make(map[string]*feature.Feature),
	}
}

// Add registers one decoded record, attaching it to its parent when the
// parent is already known and queuing it otherwise. A duplicate GFF3 ID
// is fatal; GTF re-declarations keep the first node.
func (l *Linker) Add(rec *Record) error {
	if l.Filetype == format.GTF && !l.DoGene && rec.Feature.Type == "gene" {
		// Without gene assembly a bare gene row duplicates the coverage
		// of its transcripts.
		return nil
	}

	if rec.ID != "" {
		if _, dup := l.ids[rec.ID]; dup {
			if l.Filetype == format.GTF {
				return nil
			}
			return fmt.Errorf("%w: %q declared twice", format.ErrDuplicateID, rec.ID)
		}
		l.ids[rec.ID] = rec.Feature
	}

	if len(rec.Parents) == 0 {
		l.roots = append(l.roots, rec.Feature)
		return nil
	}
	l.link(&pending{rec: rec, parents: rec.Parents})
	return nil
}

// link attaches the record to every resolvable parent. A node with
// multiple parents is cloned for each parent beyond the first, keeping
// every tree a tree. Unresolved references stay queued.
func (l *Linker) link(p *pending) {
	var unresolved []string
	for _, pid := range p.parents {
		parent, ok := l.ids[pid]
		if !ok {
			unresolved = append(unresolved, pid)
			continue
		}
		node := p.rec.Feature
		if p.attached {
			node = node.Clone()
		}
		parent.AddChild(node)
		p.attached = true
	}
	p.parents = unresolved
	if len(unresolved) > 0 {
		l.queue = append(l.queue, p)
	}
}

// Reconcile retries every queued orphan against the now-complete
// identifier table. For GFF3, an orphan whose parent is still missing is
// dropped and counted, never merged into a wrong parent. For GTF, the
// missing transcript or gene container is synthesized instead, since GTF
// files routinely declare sub-features without container rows.
// Returns the number of orphans dropped by this sweep.
func (l *Linker) Reconcile() int {
	queue := l.queue
	l.queue = nil
	droppedBefore := l.dropped
	for _, p := range queue {
		if l.Filetype == format.GTF {
			l.synthesizeParents(p)
		}
		l.link(p)
	}

	// Whatever is still queued has no parent anywhere in the input.
	for _, p := range l.queue {
		if !p.attached {
			l.dropped++
		}
	}
	l.queue = nil
	return l.dropped - droppedBefore
}

// synthesizeParents creates container nodes for a GTF orphan's missing
// transcript and gene ids, seeded from the orphan's sequence and strand.
func (l *Linker) synthesizeParents(p *pending) {
	for _, pid := range p.parents {
		if _, ok := l.ids[pid]; ok {
			continue
		}
		child := p.rec.Feature
		if pid == p.rec.TranscriptID {
			tr := l.newContainer(pid, "transcript", child)
			if gn := child.Attributes.Get("gene_name"); gn != "" {
				tr.Attributes.Set("gene_name", gn)
			}
			if l.DoGene && p.rec.GeneID != "" {
				gene, ok := l.ids[p.rec.GeneID]
				if !ok {
					gene = l.newContainer(p.rec.GeneID, "gene", child)
					l.roots = append(l.roots, gene)
				}
				gene.AddChild(tr)
			} else {
				l.roots = append(l.roots, tr)
			}
		} else {
			l.roots = append(l.roots, l.newContainer(pid, "gene", child))
		}
	}
}

// newContainer registers a synthesized transcript or gene node seeded
// from one of its children. Bounds are left zero and settled by Finalize
// once every descendant has attached.
func (l *Linker) newContainer(id, typ string, seed *feature.Feature) *feature.Feature {
	f := l.Factory()
	f.ID = id
	f.Name = id
	f.SeqID = seed.SeqID
	f.Strand = seed.Strand
	f.Source = seed.Source
	f.Type = typ
	l.ids[id] = f
	return f
}

// Dropped returns the cumulative count of orphans discarded across all
// reconciliation sweeps.
func (l *Linker) Dropped() int {
	return l.dropped
}

// Lookup returns the node registered under id, or nil.
func (l *Linker) Lookup(id string) *feature.Feature {
	return l.ids[id]
}

// Finalize settles the bounds of synthesized containers bottom-up, sorts
// every tree's children by position along the parent strand, and returns
// the top-level nodes in input order.
func (l *Linker) Finalize() []*feature.Feature {
	for _, r := range l.roots {
		finalize(r)
	}
	return l.roots
}

func finalize(f *feature.Feature) {
	for _, c := range f.Children {
		finalize(c)
		if f.Start == 0 || c.Start < f.Start {
			f.Start = c.Start
		}
		if c.End > f.End {
			f.End = c.End
		}
	}
	f.SortChildren()
}
