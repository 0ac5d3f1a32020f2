package qif

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finledger/gnc"
)

// Params controls one QIF export pass.
type Params struct {
	// StartTime excludes transactions dated before it. The zero value
	// exports everything.
	StartTime time.Time

	// Compress forces a zip archive even for a single output file.
	Compress bool
}

// File is one produced output file.
type File struct {
	Name string
	Data []byte
}

// ExportError wraps a failed export pass.
type ExportError struct {
	Op  string
	Err error
}

func (e *ExportError) Error() string { return fmt.Sprintf("export %s: %v", e.Op, e.Err) }
func (e *ExportError) Unwrap() error { return e.Err }

// Export writes the book's register in QIF form. baseName (without
// extension) names the output files: one "<base>_<CUR>.qif" per currency,
// or a single "<base>.zip" when there is more than one file or compression
// is requested. Exported transactions are flagged as such on the book.
//
// An empty register produces no files and no error.
func Export(ctx context.Context, book *gnc.Book, baseName string, p Params) ([]File, error) {
	var combined bytes.Buffer
	exported, err := writeRegister(ctx, &combined, book, p)
	if err != nil {
		return nil, &ExportError{Op: "qif", Err: err}
	}
	if combined.Len() == 0 {
		return nil, nil
	}

	files, err := splitByCurrency(&combined, baseName)
	if err != nil {
		return nil, &ExportError{Op: "qif", Err: err}
	}
	if p.Compress || len(files) > 1 {
		zipped, err := zipFiles(baseName+".zip", files)
		if err != nil {
			return nil, &ExportError{Op: "qif", Err: err}
		}
		files = []File{zipped}
	}

	for _, t := range exported {
		t.Exported = true
	}
	return files, nil
}

// registerRow is one (transaction, counterpart split) pair of the register.
// Transactions where the primary account holds the only split still get a
// row, with a nil split, so they are not lost.
type registerRow struct {
	txn     *gnc.Transaction
	split   *gnc.Split
	primary *gnc.Account
}

// writeRegister emits the combined single-stream register and returns the
// transactions it covered.
func writeRegister(ctx context.Context, w io.Writer, book *gnc.Book, p Params) ([]*gnc.Transaction, error) {
	rows, exported := collectRows(book, p)
	if len(rows) == 0 {
		return nil, nil
	}

	// group per currency so the stream splits into one segment per
	// currency, then keep splits of one transaction together
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ca, cb := a.primary.Commodity.CurrencyCode(), b.primary.Commodity.CurrencyCode(); ca != cb {
			return ca < cb
		}
		if a.primary.UID != b.primary.UID {
			return a.primary.UID < b.primary.UID
		}
		if a.txn.UID != b.txn.UID {
			return a.txn.TimePosted.Before(b.txn.TimePosted) ||
				(a.txn.TimePosted.Equal(b.txn.TimePosted) && a.txn.UID < b.txn.UID)
		}
		return false
	})

	bw := bufio.NewWriter(w)
	currentCurrency := ""
	currentAccount := ""
	currentTxn := ""
	total := decimal.Zero
	digits := int32(2)

	endTransaction := func() {
		fmt.Fprintf(bw, "%s%s\n%s\n", prefixTotal, total.StringFixed(digits), entryTerminator)
		total = decimal.Zero
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export canceled: %w", err)
		}
		account := row.primary
		commodity := account.Commodity

		if row.txn.UID != currentTxn {
			if currentTxn != "" {
				endTransaction()
			}
			digits = commodity.SmallestFractionDigits()

			if account.UID != currentAccount {
				if code := commodity.CurrencyCode(); code != currentCurrency {
					currentCurrency = code
					fmt.Fprintf(bw, "%s%s\n", currencyMarker, code)
				}
				currentAccount = account.UID
				fmt.Fprintf(bw, "%s\n%s%s\n%s%s\n",
					sectionAccount,
					prefixAccountName, book.AccountFullName(account.UID),
					prefixType, accountClass(account.Type))
				if account.Description != "" {
					fmt.Fprintf(bw, "%s%s\n", prefixAccountDesc, account.Description)
				}
				fmt.Fprintf(bw, "%s\n", entryTerminator)
			}

			currentTxn = row.txn.UID
			fmt.Fprintf(bw, "%s%s\n%s%s\n%s[%s]\n%s%s\n",
				sectionTypePrefix, accountClass(account.Type),
				prefixDate, row.txn.TimePosted.Format(dateLayout),
				prefixCategory, book.AccountFullName(account.UID),
				prefixPayee, strings.TrimSpace(row.txn.Description))
			if row.txn.Note != "" {
				fmt.Fprintf(bw, "%s%s\n", prefixMemo, flatten(row.txn.Note))
			}
			// an unbalanced remainder goes to the imbalance account
			imbalance := row.txn.Balance().Decimal().Round(2)
			if !imbalance.IsZero() {
				fmt.Fprintf(bw, "%s[%s]\n%s%s\n",
					prefixSplitCategory, gnc.ImbalanceAccountName(commodity.CurrencyCode()),
					prefixSplitAmount, imbalance.StringFixed(2))
				total = total.Add(imbalance)
			}
		}

		if row.split == nil {
			continue
		}
		counterpart := book.Account(row.split.AccountUID)
		if counterpart == nil {
			continue
		}
		fmt.Fprintf(bw, "%s[%s]\n", prefixSplitCategory, book.AccountFullName(counterpart.UID))
		if row.split.Memo != "" {
			fmt.Fprintf(bw, "%s%s\n", prefixSplitMemo, flatten(row.split.Memo))
		}
		// seen from the primary account a debit of the counterpart is money
		// out, so the sign flips
		amount := row.split.Quantity.Abs().Decimal()
		if row.split.Type == gnc.SplitDebit {
			amount = amount.Neg()
		}
		fmt.Fprintf(bw, "%s%s\n", prefixSplitAmount, amount.StringFixed(digits))
		total = total.Add(amount)
	}
	endTransaction()

	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return exported, nil
}

// collectRows projects the book onto register rows: non-template
// transactions inside the export window, one row per counterpart split. The
// primary account is the account of the transaction's first split.
func collectRows(book *gnc.Book, p Params) (rows []registerRow, exported []*gnc.Transaction) {
	for _, t := range book.Transactions {
		if len(t.Splits) == 0 || t.TimePosted.Before(p.StartTime) {
			continue
		}
		primary := book.Account(t.Splits[0].AccountUID)
		if primary == nil || primary.Commodity == nil {
			continue
		}
		if len(t.Splits) == 1 {
			rows = append(rows, registerRow{txn: t, primary: primary})
			exported = append(exported, t)
			continue
		}
		covered := false
		for _, s := range t.Splits {
			if s.AccountUID == primary.UID {
				// the primary account's own leg is implied by the total
				continue
			}
			rows = append(rows, registerRow{txn: t, split: s, primary: primary})
			covered = true
		}
		if covered {
			exported = append(exported, t)
		}
	}
	return rows, exported
}

func flatten(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// splitByCurrency cuts the combined stream at its currency markers into one
// file per currency.
func splitByCurrency(combined io.Reader, baseName string) ([]File, error) {
	var files []File
	var current *bytes.Buffer

	scanner := bufio.NewScanner(combined)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, currencyMarker) {
			if current != nil {
				files[len(files)-1].Data = current.Bytes()
			}
			current = &bytes.Buffer{}
			files = append(files, File{Name: fmt.Sprintf("%s_%s.qif", baseName, line[len(currencyMarker):])})
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("malformed register stream: content before currency marker")
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		files[len(files)-1].Data = current.Bytes()
	}
	return files, nil
}

func zipFiles(name string, files []File) (File, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return File{}, err
		}
		if _, err := w.Write(f.Data); err != nil {
			return File{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return File{}, err
	}
	return File{Name: name, Data: buf.Bytes()}, nil
}
