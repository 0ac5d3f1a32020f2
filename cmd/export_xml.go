package cmd

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/finledger/gnc/gncxml"
)

type exportXMLCmd struct {
	file     string
	out      string
	compress bool
}

func (*exportXMLCmd) Name() string { return "export-xml" }
func (*exportXMLCmd) Synopsis() string {
	return "re-export a book as GnuCash XML"
}
func (*exportXMLCmd) Usage() string {
	return `export-xml -file <book.gnucash> -out <out.gnucash> [-compress]

  Decodes a GnuCash XML file and writes it back in canonical form: counts
  first, accounts sorted parents-before-children, template transactions and
  schedules last. With -compress the output is gzip-compressed.
`
}

func (c *exportXMLCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "GnuCash XML file to read (required)")
	f.StringVar(&c.out, "out", "", "Output file (required)")
	f.BoolVar(&c.compress, "compress", false, "gzip-compress the output")
}

func (c *exportXMLCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" || c.out == "" {
		fmt.Fprintln(os.Stderr, "Error: -file and -out are required.")
		return subcommands.ExitUsageError
	}
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	store, err := OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if store != nil {
		defer store.Close()
	}

	in, err := os.Open(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", c.file, err)
		return subcommands.ExitFailure
	}
	defer in.Close()

	opts := []gncxml.Option{gncxml.WithLogger(Logger())}
	if store != nil {
		opts = append(opts, gncxml.WithCommodityStore(store))
	}
	result, err := gncxml.Decode(ctx, in, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", c.file, err)
		return subcommands.ExitFailure
	}

	out, err := os.Create(c.out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", c.out, err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	var w io.Writer = out
	var gz *gzip.Writer
	if c.compress {
		gz = gzip.NewWriter(out)
		w = gz
	}
	if err := gncxml.Encode(ctx, w, result.Book); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.out, err)
		return subcommands.ExitFailure
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.out, err)
			return subcommands.ExitFailure
		}
	}
	fmt.Printf("wrote %s\n", c.out)
	return subcommands.ExitSuccess
}
