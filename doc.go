// Package cryptotax turns a stream of heterogeneous crypto transactions into
// capital-gains and income events for one tax year.
//
// The package is a stateless engine. [CalculateTaxReport] receives the full
// transaction history, classifies every record with an ordered rule cascade
// ([Classifier]), replays acquisitions and disposals through per-asset lot
// inventories ([Inventories]) under a matching method ([FIFO], [LIFO] or
// [HIFO]), flags wash sales, recognizes income and sums everything into a
// [TaxReport] with Form 8949 rows.
//
// Data-quality problems never abort a report: they are returned as
// [Diagnostic] values next to the computed figures. Only contract violations,
// like an out of range year or an unknown matching method, are returned as
// errors.
//
// All quantities and USD values are exact decimals
// (github.com/shopspring/decimal). Day arithmetic uses the [date] package and
// always happens on the UTC calendar day of a transaction.
//
// Ledgers are persisted as JSONL, one transaction per line, see
// [DecodeTransactions] and [EncodeTransactions]. Exchange exports in arbitrary
// JSON shapes can be converted with [ImportJSON] and a [FieldMapping].
package cryptotax
