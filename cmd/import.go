package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/finledger/gnc/gncxml"
)

type importCmd struct {
	file     string
	register bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a GnuCash XML file and verify its contents" }
func (*importCmd) Usage() string {
	return `import -file <book.gnucash> [-register]

  Reads a GnuCash XML file (plain or gzip-compressed), rebuilds the account
  and transaction graph and prints a summary. With -register the book is
  recorded in the database and its commodities are remembered for future
  imports.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "GnuCash XML file to import (required)")
	f.BoolVar(&c.register, "register", false, "Record the book and its commodities in the database")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", c.file, err)
		return subcommands.ExitFailure
	}

	book := result.Book
	fmt.Printf("book %s\n", book.UID)
	fmt.Printf("  accounts:          %d\n", len(book.Accounts()))
	fmt.Printf("  transactions:      %d\n", len(book.Transactions))
	fmt.Printf("  prices:            %d\n", len(book.Prices))
	fmt.Printf("  scheduled actions: %d\n", len(book.ScheduledActions))
	fmt.Printf("  budgets:           %d\n", len(book.Budgets))
	if result.MostUsedCurrency != "" {
		fmt.Printf("  main currency:     %s\n", result.MostUsedCurrency)
	}

	if c.register {
		if store == nil {
			fmt.Fprintln(os.Stderr, "Error: -register needs a database; set -db or the configuration file.")
			return subcommands.ExitUsageError
		}
		if err := store.SaveBookCommodities(ctx, book); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving commodities: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := store.RegisterBook(ctx, book, c.file); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering book: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("registered as %q\n", book.DisplayName)
	}
	return subcommands.ExitSuccess
}
