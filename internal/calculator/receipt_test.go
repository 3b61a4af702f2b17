package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceReceipt(t *testing.T) {
	tests := []struct {
		name         string
		lines        []Line
		tendered     decimal.Decimal
		wantErr      error
		validateFunc func(t *testing.T, r *Result)
	}{
		{
			name:     "single line paid exactly in cash",
			lines:    []Line{{ProductID: 2, Quantity: dec("1"), UnitPrice: dec("620000")}},
			tendered: dec("620000"),
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Total.Equal(dec("620000")) {
					t.Errorf("total = %s, want 620000", r.Total)
				}
				if !r.Change.IsZero() {
					t.Errorf("change = %s, want 0", r.Change)
				}
				if len(r.Lines) != 1 {
					t.Fatalf("lines = %d, want 1", len(r.Lines))
				}
			},
		},
		{
			name: "two lines with change",
			lines: []Line{
				{ProductID: 1, Quantity: dec("2"), UnitPrice: dec("500000")},
				{ProductID: 3, Quantity: dec("1"), UnitPrice: dec("516610")},
			},
			tendered: dec("1600000"),
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Total.Equal(dec("1516610")) {
					t.Errorf("total = %s, want 1516610", r.Total)
				}
				if !r.Change.Equal(dec("83390")) {
					t.Errorf("change = %s, want 83390", r.Change)
				}
			},
		},
		{
			name:     "fractional quantity rounds line total to cents",
			lines:    []Line{{ProductID: 7, Quantity: dec("0.333"), UnitPrice: dec("12.99")}},
			tendered: dec("10"),
			validateFunc: func(t *testing.T, r *Result) {
				// 0.333 * 12.99 = 4.32567
				if !r.Lines[0].Total.Equal(dec("4.33")) {
					t.Errorf("line total = %s, want 4.33", r.Lines[0].Total)
				}
				if !r.Change.Equal(dec("5.67")) {
					t.Errorf("change = %s, want 5.67", r.Change)
				}
			},
		},
		{
			name: "many small lines do not drift",
			lines: func() []Line {
				lines := make([]Line, 1000)
				for i := range lines {
					lines[i] = Line{ProductID: 1, Quantity: dec("1"), UnitPrice: dec("0.1")}
				}
				return lines
			}(),
			tendered: dec("100"),
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Total.Equal(dec("100")) {
					t.Errorf("total = %s, want exactly 100", r.Total)
				}
				if !r.Change.IsZero() {
					t.Errorf("change = %s, want 0", r.Change)
				}
			},
		},
		{
			name:     "underpayment yields negative change",
			lines:    []Line{{ProductID: 1, Quantity: dec("1"), UnitPrice: dec("100")}},
			tendered: dec("40"),
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Change.Equal(dec("-60")) {
					t.Errorf("change = %s, want -60", r.Change)
				}
			},
		},
		{
			name:     "no lines totals zero",
			lines:    nil,
			tendered: dec("5"),
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Total.IsZero() {
					t.Errorf("total = %s, want 0", r.Total)
				}
				if !r.Change.Equal(dec("5")) {
					t.Errorf("change = %s, want 5", r.Change)
				}
			},
		},
		{
			name:     "zero quantity should error",
			lines:    []Line{{ProductID: 1, Quantity: dec("0"), UnitPrice: dec("10")}},
			tendered: dec("10"),
			wantErr:  ErrNonPositiveQuantity,
		},
		{
			name:     "negative price should error",
			lines:    []Line{{ProductID: 1, Quantity: dec("1"), UnitPrice: dec("-1")}},
			tendered: dec("10"),
			wantErr:  ErrNegativePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := PriceReceipt(tt.lines, tt.tendered)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("PriceReceipt() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PriceReceipt() unexpected error: %v", err)
			}

			sum := decimal.Zero
			for _, line := range result.Lines {
				sum = sum.Add(line.Total)
			}
			if !sum.Equal(result.Total) {
				t.Errorf("total %s != sum of lines %s", result.Total, sum)
			}
			if !result.Change.Equal(tt.tendered.Sub(result.Total)) {
				t.Errorf("change %s != tendered - total", result.Change)
			}

			if tt.validateFunc != nil {
				tt.validateFunc(t, result)
			}
		})
	}
}
