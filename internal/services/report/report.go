// Package report renders payoff schedules as XLSX workbooks for download.
package report

import (
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"

	"debtplan/internal/format"
	"debtplan/internal/models"
	"debtplan/internal/services/payoff"
	"debtplan/internal/version"
)

const (
	summarySheet  = "Summary"
	scheduleSheet = "Schedule"
)

var scheduleHeader = []string{
	"Month", "Starting balance", "Interest", "Payment", "Principal",
	"Ending balance", "Total principal", "Total interest",
}

// ScheduleXLSX builds a workbook with a summary sheet and one schedule row per
// month. cmp may be nil when no extra payment was compared.
func ScheduleXLSX(p models.PayoffParameters, schedule []models.ScheduleEntry, summary models.PayoffSummary, cmp *models.ScenarioComparison, generatedAt time.Time) ([]byte, error) {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "debtplan " + version.Version,
		DocSecurity: 2,
	})

	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(sheet, summarySheet); err != nil {
		return nil, err
	}
	if _, err := xlsx.NewSheet(scheduleSheet); err != nil {
		return nil, err
	}

	writeSummary(xlsx, p, summary, cmp, generatedAt)
	writeSchedule(xlsx, schedule)

	// Increase size of window
	for i := range xlsx.WorkBook.BookViews.WorkBookView {
		xlsx.WorkBook.BookViews.WorkBookView[i].WindowWidth = 25000
		xlsx.WorkBook.BookViews.WorkBookView[i].WindowHeight = 25000 / 3 * 2
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(xlsx *excelize.File, p models.PayoffParameters, summary models.PayoffSummary, cmp *models.ScenarioComparison, generatedAt time.Time) {
	sheet := summarySheet
	_ = xlsx.SetColWidth(sheet, "A", "A", 32)
	_ = xlsx.SetColWidth(sheet, "B", "B", 22)

	title, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), fontSize(14)))
	heading, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom")))
	money, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat()))
	percent, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), percentFormat()))
	warning, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), highlight()))

	row := 1
	_ = xlsx.SetCellValue(sheet, cell('A', row), "Credit card payoff plan")
	_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('A', row), title)
	row++
	_ = xlsx.SetCellValue(sheet, cell('A', row), "Generated "+generatedAt.Format("January 2, 2006"))
	row += 2

	section := func(name string) {
		_ = xlsx.SetCellValue(sheet, cell('A', row), name)
		_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('B', row), heading)
		row++
	}
	line := func(label string, v interface{}, style int) {
		_ = xlsx.SetCellValue(sheet, cell('A', row), label)
		_ = xlsx.SetCellValue(sheet, cell('B', row), v)
		if style != 0 {
			_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('B', row), style)
		}
		row++
	}

	section("Inputs")
	line("Balance", p.Principal, money)
	line("APR", p.AnnualPercentageRate/100, percent)
	line("Minimum payment floor", p.MinimumPaymentFloor, money)
	line("Required principal", p.RequiredPrincipalPercentage/100, percent)
	line("Extra monthly payment", p.AdditionalMonthlyPayment, money)
	row++

	section("Result")
	line("Months to payoff", summary.MonthsToPayoff, 0)
	line("Time to payoff", format.Duration(summary.MonthsToPayoff), 0)
	line("Total interest", summary.TotalInterestPaid, money)
	line("Total principal", summary.TotalPrincipalPaid, money)
	line("Total paid", summary.TotalPaid, money)
	if summary.PaidOff {
		line("Debt-free", format.MonthYear(payoff.DebtFreeDate(generatedAt, summary.MonthsToPayoff)), 0)
	} else {
		line("Balance after 50 years", summary.RemainingBalance, money)
		_ = xlsx.SetCellValue(sheet, cell('A', row), "This payment plan will not pay off the balance.")
		_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('B', row), warning)
		row++
	}

	if cmp == nil {
		return
	}
	row++
	section(fmt.Sprintf("With %s extra each month", format.Money(cmp.ExtraPayment)))
	line("Months to payoff", cmp.NewMonthsToPayoff, 0)
	line("Months saved", cmp.MonthsSaved, 0)
	line("Total interest", cmp.Scenario.TotalInterestPaid, money)
	if cmp.InterestSavedKnown() {
		line("Interest saved", *cmp.InterestSaved, money)
	} else {
		line("Interest saved", "n/a (minimum payments never pay off)", 0)
	}
}

func writeSchedule(xlsx *excelize.File, schedule []models.ScheduleEntry) {
	sheet := scheduleSheet
	_ = xlsx.SetColWidth(sheet, "A", "A", 8)
	_ = xlsx.SetColWidth(sheet, "B", "H", 16)

	for i, h := range scheduleHeader {
		_ = xlsx.SetCellValue(sheet, cell(rune('A'+i), 1), h)
	}
	header, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom"), textAlignment("right")))
	_ = xlsx.SetCellStyle(sheet, cell('A', 1), cell('H', 1), header)
	_ = xlsx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	row := 2
	for _, e := range schedule {
		_ = xlsx.SetCellInt(sheet, cell('A', row), e.Month)
		_ = xlsx.SetCellValue(sheet, cell('B', row), e.StartingBalance)
		_ = xlsx.SetCellValue(sheet, cell('C', row), e.InterestAccrued)
		_ = xlsx.SetCellValue(sheet, cell('D', row), e.PaymentMade)
		_ = xlsx.SetCellValue(sheet, cell('E', row), e.PrincipalApplied)
		_ = xlsx.SetCellValue(sheet, cell('F', row), e.EndingBalance)
		_ = xlsx.SetCellValue(sheet, cell('G', row), e.CumulativePrincipal)
		_ = xlsx.SetCellValue(sheet, cell('H', row), e.CumulativeInterest)
		row++
	}

	if len(schedule) == 0 {
		return
	}
	money, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat()))
	_ = xlsx.SetCellStyle(sheet, cell('B', 2), cell('H', row-1), money)
	yearEnd, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat(), thinBorder("bottom")))
	for r := 13; r < row; r += 12 {
		_ = xlsx.SetCellStyle(sheet, cell('A', r), cell('H', r), yearEnd)
	}
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func defaultStyle() *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFFFFF"},
			Pattern: 1,
		},
	}
}

func moneyFormat() *excelize.Style {
	f := "$#,##0.00"
	return &excelize.Style{CustomNumFmt: &f}
}

func percentFormat() *excelize.Style {
	f := "0.00%"
	return &excelize.Style{CustomNumFmt: &f}
}

func fontBold() *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Bold: true}}
}

func fontSize(size float64) *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Size: size}}
}

func textAlignment(a string) *excelize.Style {
	return &excelize.Style{Alignment: &excelize.Alignment{Horizontal: a}}
}

func thinBorder(where ...string) *excelize.Style {
	s := &excelize.Style{}
	for _, w := range where {
		s.Border = append(s.Border, excelize.Border{
			Type:  w,
			Color: "#000000",
			Style: 1,
		})
	}
	return s
}

func highlight() *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFE08A"},
			Pattern: 1,
		},
	}
}

// mergeStyles folds ext[1:] into ext[0], later styles winning
func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}
