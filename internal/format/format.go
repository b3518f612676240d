// Package format renders money, rates and durations for people. It is shared
// by the HTML templates, the XLSX report and the command-line tool so every
// surface prints numbers the same way.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Money formats v as US dollars with cents, e.g. -$1,234.50
func Money(v float64) string {
	if v < 0 {
		return "-$" + printer.Sprintf("%.2f", -v)
	}
	return "$" + printer.Sprintf("%.2f", v)
}

// Number formats v with thousands separators and no decimals
func Number(v float64) string {
	return printer.Sprintf("%.0f", v)
}

// Percent formats an already-scaled percentage, e.g. 18 -> "18.00%"
func Percent(v float64) string {
	return printer.Sprintf("%.2f%%", v)
}

// Duration spells out a month count as years and months
func Duration(months int) string {
	if months <= 0 {
		return "0 months"
	}
	years, rest := months/12, months%12

	var parts []string
	if years > 0 {
		parts = append(parts, plural(years, "year"))
	}
	if rest > 0 {
		parts = append(parts, plural(rest, "month"))
	}
	return strings.Join(parts, " ")
}

// MonthYear formats a projected payoff date, e.g. "December 2031"
func MonthYear(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2006")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
