// Package printer renders receipts as fixed-width plain text, the way they
// come out of a thermal receipt printer.
package printer

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/models"
)

const (
	// DefaultWidth is the line width of a standard 58mm receipt roll.
	DefaultWidth = 40

	labelWidth      = 10
	timestampLayout = "02.01.2006 15:04"
	thankYouLine    = "Thank you for your purchase!"
)

// Config controls the receipt layout.
type Config struct {
	// Vendor is printed centered on the first line.
	Vendor string

	// Width is the line width in characters. Defaults to DefaultWidth.
	Width int

	// Location is used to print the receipt timestamp. Defaults to UTC.
	Location *time.Location
}

// Printer formats receipts. It holds no mutable state and is safe for concurrent use.
type Printer struct {
	vendor   string
	width    int
	location *time.Location
}

// New creates a Printer, filling in defaults for zero config values.
func New(cfg Config) *Printer {
	p := &Printer{
		vendor:   cfg.Vendor,
		width:    cfg.Width,
		location: cfg.Location,
	}
	if p.width <= 0 {
		p.width = DefaultWidth
	}
	if p.location == nil {
		p.location = time.UTC
	}
	return p
}

// Width returns the configured line width.
func (p *Printer) Width() int {
	return p.width
}

// Format renders the receipt. The receipt is not modified.
func (p *Printer) Format(r *models.Receipt) string {
	w := p.width
	amountWidth := w - labelWidth
	nameWidth := w / 2

	doubleRule := strings.Repeat("=", w)
	thinRule := strings.Repeat("-", w)

	lines := make([]string, 0, 2+3*len(r.SaleItems)+9)
	lines = append(lines, center(p.vendor, w), doubleRule)

	for _, item := range r.SaleItems {
		lines = append(lines,
			ljust(item.Quantity.String()+" x "+groupDigits(item.UnitPrice, 0), amountWidth),
			ljust(item.ProductName, nameWidth)+rjust(groupDigits(item.TotalPrice, 2), w-nameWidth),
		)
		if len(r.SaleItems) > 1 {
			lines = append(lines, thinRule)
		}
	}

	lines = append(lines,
		doubleRule,
		ljust("TOTAL", labelWidth)+rjust(groupDigits(r.Total, 2), amountWidth),
		ljust(strings.ToUpper(r.PaymentType), labelWidth)+rjust(groupDigits(r.PaymentAmount, 2), amountWidth),
		ljust("CHANGE", labelWidth)+rjust(groupDigits(r.PaymentAmount.Sub(r.Total), 2), amountWidth),
		doubleRule,
		center("Receipt №"+strconv.FormatInt(r.ID, 10), w),
		center(r.CreatedAt.In(p.location).Format(timestampLayout), w),
		center(thankYouLine, w),
		doubleRule,
	)

	return strings.Join(lines, "\n")
}

// groupDigits formats d with the given number of decimal places and a space
// between every three digits of the integer part. Halves round to even.
func groupDigits(d decimal.Decimal, places int32) string {
	s := d.RoundBank(places).StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	b.Grow(len(sign) + len(intPart) + len(intPart)/3 + len(fracPart))
	b.WriteString(sign)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	b.WriteString(fracPart)
	return b.String()
}

// center pads s on both sides to width. When the padding is odd the extra
// space goes right, unless both padding and width are odd.
func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	margin := width - n
	left := margin/2 + (margin & width & 1)
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", margin-left)
}

func ljust(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func rjust(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
