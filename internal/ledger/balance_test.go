package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/testutil"
)

func TestCheck_BalancedSingleCurrency(t *testing.T) {
	txn := testutil.Journal("USD",
		testutil.Line(1, "GL", "100.00"),
		testutil.Line(2, "GL", "-100.00"),
	)

	r := NewChecker(DefaultConfig()).Check(txn)
	assert.True(t, r.GLRelevant)
	assert.Empty(t, r.Violations)
	require.Len(t, r.Groups, 1)
	assert.True(t, r.Groups[0].Balanced)
	assert.Equal(t, []int{1, 2}, r.Groups[0].Lines)
}

func TestCheck_PerturbedLine(t *testing.T) {
	txn := testutil.Journal("USD",
		testutil.Line(1, "GL", "105.00"),
		testutil.Line(2, "GL", "-100.00"),
	)

	r := NewChecker(DefaultConfig()).Check(txn)
	require.Len(t, r.Violations, 1)
	v := r.Violations[0]
	assert.Equal(t, ir.CodeGLUnbalanced, v.Code)
	assert.Equal(t, "USD", v.Currency)
	require.NotNil(t, v.Residual)
	assert.True(t, v.Residual.Equal(testutil.Amount("5")), "residual %s", v.Residual)
	assert.Contains(t, v.Message, "debits exceed credits by 5")
}

func TestCheck_MultiCurrencyGroupsAreIndependent(t *testing.T) {
	txn := testutil.Journal("USD",
		testutil.Line(1, "GL", "100.00"),
		testutil.Line(2, "GL", "-100.00"),
		testutil.LineIn(3, "GL", "50.00", "EUR"),
		testutil.LineIn(4, "GL", "-49.00", "EUR"),
	)

	r := NewChecker(DefaultConfig()).Check(txn)
	require.Len(t, r.Violations, 1)
	assert.Equal(t, "EUR", r.Violations[0].Currency)
	assert.True(t, r.Violations[0].Residual.Equal(testutil.Amount("1")))

	require.Len(t, r.Groups, 2)
	assert.Equal(t, "EUR", r.Groups[0].Currency, "groups sorted by currency")
	assert.False(t, r.Groups[0].Balanced)
	assert.Equal(t, "USD", r.Groups[1].Currency)
	assert.True(t, r.Groups[1].Balanced)
}

func TestCheck_CrossCurrencyNettingIsNotBalance(t *testing.T) {
	// USD +100 and EUR -100 sum to zero but neither group does.
	txn := testutil.Journal("USD",
		testutil.Line(1, "GL", "100.00"),
		testutil.LineIn(2, "GL", "-100.00", "EUR"),
	)

	r := NewChecker(DefaultConfig()).Check(txn)
	require.Len(t, r.Violations, 2)
	assert.Equal(t, "EUR", r.Violations[0].Currency)
	assert.Contains(t, r.Violations[0].Message, "credits exceed debits by 100")
	assert.Equal(t, "USD", r.Violations[1].Currency)
}

func TestCheck_Epsilon(t *testing.T) {
	tests := []struct {
		name     string
		residual string
		balanced bool
	}{
		{"exact", "0", true},
		{"sub cent", "0.009", true},
		{"one cent", "0.01", false},
		{"negative sub cent", "-0.005", true},
		{"negative one cent", "-0.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := testutil.Journal("USD",
				testutil.Line(1, "GL", "10"),
				testutil.Line(2, "GL", testutil.Amount("-10").Add(testutil.Amount(tt.residual)).String()),
			)
			r := NewChecker(DefaultConfig()).Check(txn)
			assert.Equal(t, tt.balanced, len(r.Violations) == 0, "violations: %v", r.Violations)
		})
	}
}

func TestCheck_ResidualEqualToEpsilonFails(t *testing.T) {
	txn := testutil.Journal("USD", testutil.Line(1, "GL", "100.00"), testutil.Line(2, "GL", "-99.99"))

	r := NewChecker(DefaultConfig()).Check(txn)
	require.Len(t, r.Violations, 1)
	assert.Equal(t, ir.CodeGLUnbalanced, r.Violations[0].Code)
	assert.Equal(t, "0.01", r.Violations[0].Residual.String())
}

func TestCheck_CurrencyEpsilonOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CurrencyEpsilon = map[string]decimal.Decimal{"JPY": testutil.Amount("1")}
	c := NewChecker(cfg)

	jpy := testutil.Journal("JPY", testutil.Line(1, "GL", "1000.5"), testutil.Line(2, "GL", "-1000"))
	assert.Empty(t, c.Check(jpy).Violations)

	usd := testutil.Journal("USD", testutil.Line(1, "GL", "1000.5"), testutil.Line(2, "GL", "-1000"))
	assert.Len(t, c.Check(usd).Violations, 1)
}

func TestCheck_CreditPositiveConvention(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sign = CreditPositive

	txn := testutil.Journal("USD", testutil.Line(1, "GL", "105"), testutil.Line(2, "GL", "-100"))
	r := NewChecker(cfg).Check(txn)
	require.Len(t, r.Violations, 1)
	assert.True(t, r.Violations[0].Residual.Equal(testutil.Amount("-5")), "residual is debits minus credits")
	assert.Contains(t, r.Violations[0].Message, "credits exceed debits by 5")
}

func TestCheck_NonGLLinesAreIgnored(t *testing.T) {
	txn := testutil.Journal("USD",
		testutil.Line(1, "ITEM", "250.00"),
		testutil.Line(2, "TAX", "20.00"),
	)

	r := NewChecker(DefaultConfig()).Check(txn)
	assert.False(t, r.GLRelevant)
	assert.Empty(t, r.Violations)
	assert.Empty(t, r.Groups)
}

func TestCheck_MixedLinesOnlyGLCounts(t *testing.T) {
	txn := testutil.Journal("USD",
		testutil.Line(1, "ITEM", "999.00"),
		testutil.Line(2, "GL", "40"),
		testutil.Line(3, "GL", "-40"),
	)

	r := NewChecker(DefaultConfig()).Check(txn)
	assert.True(t, r.GLRelevant)
	assert.Empty(t, r.Violations)
	assert.Equal(t, []int{2, 3}, r.Groups[0].Lines)
}

func TestCheck_ConfiguredGLTypes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GLLineTypes = []string{"DEBIT", "CREDIT"}

	txn := testutil.Journal("USD", testutil.Line(1, "DEBIT", "10"), testutil.Line(2, "CREDIT", "-9"))
	r := NewChecker(cfg).Check(txn)
	assert.True(t, r.GLRelevant)
	assert.Len(t, r.Violations, 1)
}

func TestCheck_MissingCurrency(t *testing.T) {
	txn := testutil.Journal("", testutil.Line(1, "GL", "10"), testutil.Line(2, "GL", "-10"))

	r := NewChecker(DefaultConfig()).Check(txn)
	require.Len(t, r.Violations, 1)
	assert.Equal(t, ir.CodeFieldInvalid, r.Violations[0].Code)
	assert.Equal(t, "transaction.transaction_currency_code", r.Violations[0].Field)
}

func TestCheck_LineNumbers(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		count   int
	}{
		{"dense", []int{1, 2, 3}, 0},
		{"unordered dense", []int{3, 1, 2}, 0},
		{"zero", []int{0, 1}, 2},      // out of range and 2 missing
		{"duplicate", []int{1, 1}, 2}, // duplicate and 2 missing
		{"gap", []int{1, 3}, 2},       // 3 out of range and 2 missing
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := make([]ir.TransactionLine, len(tt.numbers))
			for i, n := range tt.numbers {
				lines[i] = testutil.Line(n, "ITEM", "1")
			}
			r := NewChecker(DefaultConfig()).Check(testutil.Journal("USD", lines...))
			require.Len(t, r.Violations, tt.count, "violations: %v", r.Violations)
			for _, v := range r.Violations {
				assert.Equal(t, ir.CodeLineNumberInvalid, v.Code)
			}
		})
	}
}

func TestNewChecker_Defaults(t *testing.T) {
	c := NewChecker(Config{})
	cfg := c.Config()
	assert.Equal(t, []string{"GL"}, cfg.GLLineTypes)
	assert.Equal(t, DebitPositive, cfg.Sign)
	assert.True(t, cfg.Epsilon.Equal(testutil.Amount("0.01")))
}
