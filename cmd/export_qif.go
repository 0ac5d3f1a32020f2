package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/finledger/gnc/gncxml"
	"github.com/finledger/gnc/qif"
)

type exportQifCmd struct {
	file        string
	outDir      string
	compress    bool
	incremental bool
}

func (*exportQifCmd) Name() string     { return "export-qif" }
func (*exportQifCmd) Synopsis() string { return "export the transaction register as QIF" }
func (*exportQifCmd) Usage() string {
	return `export-qif -file <book.gnucash> [-out <dir>] [-compress] [-incremental]

  Exports the register of a GnuCash XML file in QIF form, one file per
  currency; multiple files are packed into a zip archive. With -incremental
  only transactions dated after the book's recorded last export are written,
  and the export time is recorded in the database.
`
}

func (c *exportQifCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "GnuCash XML file to read (required)")
	f.StringVar(&c.outDir, "out", ".", "Directory for the output files")
	f.BoolVar(&c.compress, "compress", false, "Always produce a zip archive")
	f.BoolVar(&c.incremental, "incremental", false, "Export only transactions since the last export")
}

func (c *exportQifCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required.")
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
	if c.incremental && store == nil {
		fmt.Fprintln(os.Stderr, "Error: -incremental needs a database; set -db or the configuration file.")
		return subcommands.ExitUsageError
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
	book := result.Book

	params := qif.Params{Compress: c.compress || cfg.Qif.Compress}
	if c.incremental {
		info, err := store.Book(ctx, book.UID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if info != nil {
			params.StartTime = info.LastExportTime
		}
	}

	base := strings.TrimSuffix(filepath.Base(c.file), filepath.Ext(c.file))
	files, err := qif.Export(ctx, book, base, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting %s: %v\n", c.file, err)
		return subcommands.ExitFailure
	}
	if len(files) == 0 {
		fmt.Println("nothing to export")
		return subcommands.ExitSuccess
	}
	for _, out := range files {
		path := filepath.Join(c.outDir, out.Name)
		if err := os.WriteFile(path, out.Data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("wrote %s\n", path)
	}

	if c.incremental {
		if err := store.SetLastExportTime(ctx, book.UID, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording export time: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
