// Package csvacc writes the account list of a book as CSV, in the column
// layout the desktop application's account importer understands.
package csvacc

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/finledger/gnc"
)

// header is the fixed column set of the account-list format.
var header = []string{
	"Type", "Full Account Name", "Account Name", "Account Code",
	"Description", "Account Color", "Notes", "Symbol", "Namespace",
	"Hidden", "Tax Info", "Placeholder",
}

// Params controls one account-list export.
type Params struct {
	// Separator is the field delimiter; a zero value means comma.
	Separator rune
}

// Export writes one row per account, parents before children. The ROOT
// account and template placeholders are skipped.
func Export(ctx context.Context, w io.Writer, book *gnc.Book, p Params) error {
	cw := csv.NewWriter(w)
	if p.Separator != 0 {
		cw.Comma = p.Separator
	}
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing account list: %w", err)
	}
	for _, a := range book.AccountsByFullName() {
		if a.IsRoot() || (a.Commodity != nil && a.Commodity.IsTemplate()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export canceled: %w", err)
		}
		if err := cw.Write(row(book, a)); err != nil {
			return fmt.Errorf("writing account list: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing account list: %w", err)
	}
	return nil
}

func row(book *gnc.Book, a *gnc.Account) []string {
	mnemonic, namespace := "", ""
	if a.Commodity != nil {
		mnemonic = a.Commodity.Mnemonic
		namespace = a.Commodity.Namespace
	}
	return []string{
		string(a.Type),
		book.AccountFullName(a.UID),
		a.Name,
		"", // account code, not tracked
		a.Description,
		a.ColorRGB(),
		a.Note,
		mnemonic,
		namespace,
		boolTF(a.Hidden),
		boolTF(false), // tax info, not tracked
		boolTF(a.Placeholder),
	}
}

func boolTF(b bool) string {
	if b {
		return "T"
	}
	return "F"
}
