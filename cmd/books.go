package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
)

type booksCmd struct{}

func (*booksCmd) Name() string     { return "books" }
func (*booksCmd) Synopsis() string { return "list the books recorded in the database" }
func (*booksCmd) Usage() string {
	return `books

  Lists the registered books with their source file and last export time.
`
}

func (c *booksCmd) SetFlags(*flag.FlagSet) {}

func (c *booksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if store == nil {
		fmt.Fprintln(os.Stderr, "Error: no database configured; set -db or the configuration file.")
		return subcommands.ExitUsageError
	}
	defer store.Close()

	books, err := store.Books(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(books) == 0 {
		fmt.Println("no books registered")
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUID\tSOURCE\tLAST EXPORT")
	for _, b := range books {
		lastExport := "never"
		if !b.LastExportTime.IsZero() {
			lastExport = b.LastExportTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.DisplayName, b.UID, b.SourceURI, lastExport)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
