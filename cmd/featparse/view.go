package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/featparse"
	"github.com/inodb/featparse/internal/output"
)

// sessionOptions builds parser options from flags, falling back to the
// config file for unset switches.
func sessionOptions(cmd *cobra.Command) featparse.Options {
	opts := featparse.DefaultOptions()
	boolOpt := func(flag, key string, dst *bool) {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetBool(flag)
		} else if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}
	boolOpt("gene", "parse.gene", &opts.DoGene)
	boolOpt("exon", "parse.exon", &opts.DoExon)
	boolOpt("cds", "parse.cds", &opts.DoCDS)
	boolOpt("utr", "parse.utr", &opts.DoUTR)
	boolOpt("codon", "parse.codon", &opts.DoCodon)
	opts.Source, _ = cmd.Flags().GetString("source")
	opts.RefSeqSummary, _ = cmd.Flags().GetString("refseqsum")
	opts.RefSeqStatus, _ = cmd.Flags().GetString("refseqstat")
	opts.KgXref, _ = cmd.Flags().GetString("kgxref")
	return opts
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("gene", true, "Assemble gene-level parents (ignored for BED)")
	cmd.Flags().Bool("exon", false, "Emit exon children")
	cmd.Flags().Bool("cds", false, "Emit CDS children")
	cmd.Flags().Bool("utr", false, "Emit UTR children")
	cmd.Flags().Bool("codon", false, "Emit start/stop codon children")
	cmd.Flags().String("source", "", "Override the source tag")
	cmd.Flags().String("refseqsum", "", "UCSC refSeqSummary table for transcript summaries")
	cmd.Flags().String("refseqstat", "", "UCSC refSeqStatus table for review status")
	cmd.Flags().String("kgxref", "", "UCSC kgXref table for knownGene symbols")
}

func newTasteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taste <file>",
		Short: "Report the detected flavor and filetype of an annotation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flavor, filetype, err := featparse.Detect(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", args[0], flavor, filetype)
			return nil
		},
	}
}

func newViewCmd() *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Parse an annotation file and re-encode it on stdout",
		Example: `  featparse view genes.gtf
  featparse view --cds --utr -f gff3 knownGene.txt.gz
  featparse view -f bed peaks.narrowPeak`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := featparse.Open(args[0], sessionOptions(cmd))
			if err != nil {
				return err
			}
			defer sess.Close()
			sess.SetLogger(logger)

			top, err := sess.TopFeatures()
			if err != nil {
				return err
			}

			switch outFormat {
			case "bed":
				w := output.NewBEDWriter(os.Stdout)
				for _, f := range top {
					if err := w.Write(f); err != nil {
						return err
					}
				}
				return w.Flush()
			case "gff3":
				w := output.NewGFF3Writer(os.Stdout)
				for _, f := range top {
					if err := w.Write(f); err != nil {
						return err
					}
				}
				return w.Flush()
			}
			return fmt.Errorf("unknown output format %q", outFormat)
		},
	}

	addSessionFlags(cmd)
	cmd.Flags().StringVarP(&outFormat, "output-format", "f", "gff3", "Output format: gff3, bed")
	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize feature counts and chromosome extents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := featparse.Open(args[0], sessionOptions(cmd))
			if err != nil {
				return err
			}
			defer sess.Close()
			sess.SetLogger(logger)

			top, err := sess.TopFeatures()
			if err != nil {
				return err
			}

			flavor, filetype := sess.Taste()
			fmt.Printf("file\t%s\n", args[0])
			fmt.Printf("flavor\t%s\n", flavor)
			fmt.Printf("filetype\t%s\n", filetype)
			fmt.Printf("top_features\t%d\n", len(top))
			fmt.Printf("orphans_dropped\t%d\n", sess.Orphans())
			fmt.Printf("comments\t%d\n", len(sess.Comments()))

			byType := make(map[string]int)
			for _, f := range top {
				f.Walk(func(n *featparse.Feature) {
					byType[n.Type]++
				})
			}
			types := make([]string, 0, len(byType))
			for t := range byType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("count.%s\t%d\n", t, byType[t])
			}

			lengths := sess.SeqIDLengths()
			chroms := make([]string, 0, len(lengths))
			for c := range lengths {
				chroms = append(chroms, c)
			}
			sort.Strings(chroms)
			for _, c := range chroms {
				fmt.Printf("extent.%s\t%d\n", c, lengths[c])
			}
			return nil
		},
	}

	addSessionFlags(cmd)
	return cmd
}
