package cryptotax

import "fmt"

// Severity of a [Diagnostic].
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// DiagnosticKind identifies the data-quality problem a [Diagnostic] reports.
type DiagnosticKind string

const (
	// DiagInvalidTransaction: the transaction was excluded from the report.
	DiagInvalidTransaction DiagnosticKind = "invalid_transaction"
	// DiagUnidentified: no classification rule matched, the fallback was used.
	DiagUnidentified DiagnosticKind = "unidentified_classification"
	// DiagMissingPrice: a quantity moved without a USD value.
	DiagMissingPrice DiagnosticKind = "missing_price"
	// DiagZeroBasisExpected: part of a disposal has no lot, but the asset was
	// received as income so a zero basis is expected.
	DiagZeroBasisExpected DiagnosticKind = "zero_basis_expected"
	// DiagZeroBasisUnexpected: part of a disposal has no lot and no income
	// explains it, the transaction history is probably incomplete.
	DiagZeroBasisUnexpected DiagnosticKind = "zero_basis_unexpected"
	// DiagWashSale: a loss was disallowed by the wash-sale rule.
	DiagWashSale DiagnosticKind = "wash_sale"
)

// Diagnostic is a data-quality annotation attached to a report. Diagnostics
// never stop a report from being computed.
type Diagnostic struct {
	Kind          DiagnosticKind `json:"kind"`
	Severity      Severity       `json:"severity"`
	TransactionID string         `json:"transactionId,omitempty"`
	Asset         string         `json:"asset,omitempty"`
	Message       string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.TransactionID == "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %s", d.Severity, d.Kind, d.TransactionID, d.Message)
}

func warning(kind DiagnosticKind, tx Transaction, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:          kind,
		Severity:      SeverityWarning,
		TransactionID: tx.ID,
		Asset:         tx.Asset(),
		Message:       fmt.Sprintf(format, args...),
	}
}
