// Package ledger checks double-entry balance of GL-relevant transactions.
//
// A transaction is GL-relevant when at least one line has a GL line type.
// GL lines are grouped by effective currency (line override, else the
// transaction default) and every group must net to zero within that
// currency's epsilon. Groups are never summed across currencies.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/guardrail/internal/ir"
)

// SignConvention says which side of the ledger carries positive amounts.
type SignConvention string

const (
	DebitPositive  SignConvention = "debit_positive"
	CreditPositive SignConvention = "credit_positive"
)

// Config holds the ledger constants. They are configuration, not per-call
// arguments, so every call site agrees on them.
//
// Epsilon is an exclusive bound: a group balances only when its residual
// is strictly smaller than the epsilon of its currency, so a residual of
// exactly one smallest unit (0.01 by default) fails.
type Config struct {
	GLLineTypes     []string                   `json:"gl_line_types"`
	Sign            SignConvention             `json:"sign_convention"`
	Epsilon         decimal.Decimal            `json:"epsilon"`
	CurrencyEpsilon map[string]decimal.Decimal `json:"currency_epsilon,omitempty"`
}

// DefaultConfig is GL lines only, debits positive, one cent tolerance.
func DefaultConfig() Config {
	return Config{
		GLLineTypes: []string{"GL"},
		Sign:        DebitPositive,
		Epsilon:     decimal.New(1, -2),
	}
}

// Group is the balance of one currency grouping.
type Group struct {
	Currency string `json:"currency"`
	// Residual is debits minus credits, whatever the sign convention.
	Residual decimal.Decimal `json:"residual"`
	Lines    []int           `json:"lines"`
	Balanced bool            `json:"balanced"`
}

// Result is the outcome of a balance check.
type Result struct {
	GLRelevant bool           `json:"gl_relevant"`
	Groups     []Group        `json:"groups"`
	Violations []ir.Violation `json:"violations"`
}

// Checker verifies transactions against a Config. Stateless.
type Checker struct {
	cfg     Config
	glTypes map[string]bool
}

// NewChecker creates a checker. Zero-valued fields fall back to
// DefaultConfig.
func NewChecker(cfg Config) *Checker {
	def := DefaultConfig()
	if len(cfg.GLLineTypes) == 0 {
		cfg.GLLineTypes = def.GLLineTypes
	}
	if cfg.Sign == "" {
		cfg.Sign = def.Sign
	}
	if cfg.Epsilon.IsZero() {
		cfg.Epsilon = def.Epsilon
	}

	glTypes := make(map[string]bool, len(cfg.GLLineTypes))
	for _, t := range cfg.GLLineTypes {
		glTypes[t] = true
	}
	return &Checker{cfg: cfg, glTypes: glTypes}
}

// Config returns the effective configuration.
func (c *Checker) Config() Config {
	return c.cfg
}

// epsilon returns the tolerance for a currency.
func (c *Checker) epsilon(currency string) decimal.Decimal {
	if eps, ok := c.cfg.CurrencyEpsilon[currency]; ok {
		return eps
	}
	return c.cfg.Epsilon
}

// Check validates line numbering and, for GL-relevant transactions, the
// per-currency balance.
func (c *Checker) Check(txn ir.Transaction) Result {
	result := Result{Groups: []Group{}, Violations: checkLineNumbers(txn.Lines)}

	sums := make(map[string]decimal.Decimal)
	members := make(map[string][]int)
	for _, line := range txn.Lines {
		if !c.glTypes[line.LineType] {
			continue
		}
		result.GLRelevant = true
		currency := txn.EffectiveCurrency(line)
		sums[currency] = sums[currency].Add(line.LineAmount)
		members[currency] = append(members[currency], line.LineNumber)
	}

	if !result.GLRelevant {
		return result
	}

	currencies := make([]string, 0, len(sums))
	for currency := range sums {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		residual := sums[currency]
		if c.cfg.Sign == CreditPositive {
			residual = residual.Neg()
		}

		group := Group{
			Currency: currency,
			Residual: residual,
			Lines:    members[currency],
			Balanced: residual.IsZero() || residual.Abs().LessThan(c.epsilon(currency)),
		}
		result.Groups = append(result.Groups, group)

		if currency == "" {
			result.Violations = append(result.Violations, ir.Violation{
				Code:    ir.CodeFieldInvalid,
				Message: fmt.Sprintf("GL lines %s have no currency and the transaction has no default currency", joinInts(group.Lines)),
				Field:   "transaction.transaction_currency_code",
			})
		}

		if !group.Balanced {
			residual := group.Residual
			result.Violations = append(result.Violations, ir.Violation{
				Code:     ir.CodeGLUnbalanced,
				Message:  unbalancedMessage(currency, residual),
				Field:    "transaction.lines",
				Currency: currency,
				Residual: &residual,
			})
		}
	}

	return result
}

func unbalancedMessage(currency string, residual decimal.Decimal) string {
	label := currency
	if label == "" {
		label = "(no currency)"
	}
	if residual.IsPositive() {
		return fmt.Sprintf("%s lines do not balance: debits exceed credits by %s", label, residual.String())
	}
	return fmt.Sprintf("%s lines do not balance: credits exceed debits by %s", label, residual.Abs().String())
}

// checkLineNumbers requires line numbers 1..n, each used once.
func checkLineNumbers(lines []ir.TransactionLine) []ir.Violation {
	violations := []ir.Violation{}
	seen := make(map[int]int, len(lines))

	for i, line := range lines {
		field := fmt.Sprintf("transaction.lines[%d].line_number", i)
		switch {
		case line.LineNumber < 1 || line.LineNumber > len(lines):
			violations = append(violations, ir.Violation{
				Code:    ir.CodeLineNumberInvalid,
				Message: fmt.Sprintf("line number %d is outside 1..%d", line.LineNumber, len(lines)),
				Field:   field,
			})
		case seen[line.LineNumber] > 0:
			violations = append(violations, ir.Violation{
				Code:    ir.CodeLineNumberInvalid,
				Message: fmt.Sprintf("line number %d is used more than once", line.LineNumber),
				Field:   field,
			})
		}
		seen[line.LineNumber]++
	}

	// With n lines all in 1..n and no duplicates the numbering is dense, so
	// gaps only need reporting when the checks above found nothing.
	if len(violations) == 0 {
		return violations
	}
	var missing []int
	for n := 1; n <= len(lines); n++ {
		if seen[n] == 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		violations = append(violations, ir.Violation{
			Code:    ir.CodeLineNumberInvalid,
			Message: fmt.Sprintf("line numbers %s are missing", joinInts(missing)),
			Field:   "transaction.lines",
		})
	}
	return violations
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
