// Package gnc models a double-entry ledger book the way desktop accounting
// files represent it: a tree of accounts rooted at a single ROOT account,
// transactions made of splits that reference accounts, commodities and
// currencies with exact fractional amounts, price quotes, scheduled
// transactions with recurrence rules, and budgets.
//
// The model is deliberately plain: exported fields, reference semantics, and
// no behavior beyond the invariants the file format requires (single root,
// balanced transactions, exact rational arithmetic). The subpackages build on
// it:
//   - gncxml reads and writes the hierarchical XML ledger format.
//   - qif exports flat per-currency register files.
//   - csvacc exports the account tree as CSV rows.
//   - backend/sqlite persists commodities and a registry of known books.
//
// Together they back the `gncfile` command-line tool.
package gnc
