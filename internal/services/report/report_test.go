package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"debtplan/internal/models"
	"debtplan/internal/services/payoff"
)

func TestScheduleXLSX(t *testing.T) {
	p := payoff.SimpleRule(25).Params(1000, 18)
	schedule, summary, err := payoff.ComputeSchedule(p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	cmp, err := payoff.CompareScenarios(p, 50)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	data, err := ScheduleXLSX(p, schedule, summary, cmp, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ScheduleXLSX: %v", err)
	}

	xlsx, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer xlsx.Close()

	sheets := xlsx.GetSheetList()
	if len(sheets) != 2 || sheets[0] != summarySheet || sheets[1] != scheduleSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := xlsx.GetRows(scheduleSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != len(schedule)+1 {
		t.Errorf("got %d rows, want %d", len(rows), len(schedule)+1)
	}

	raw := excelize.Options{RawCellValue: true}
	checks := map[string]string{
		"A2": "1",
		"C2": "15",
		"D2": "25",
		"F2": "990",
	}
	for c, want := range checks {
		got, _ := xlsx.GetCellValue(scheduleSheet, c, raw)
		if got != want {
			t.Errorf("%s = %q, want %q", c, got, want)
		}
	}

	title, _ := xlsx.GetCellValue(summarySheet, "A1")
	if title != "Credit card payoff plan" {
		t.Errorf("title = %q", title)
	}
}

func TestScheduleXLSXNonConvergent(t *testing.T) {
	p := models.PayoffParameters{Principal: 1000, AnnualPercentageRate: 30, MinimumPaymentFloor: 1}
	schedule, summary, err := payoff.ComputeSchedule(p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	data, err := ScheduleXLSX(p, schedule, summary, nil, time.Now())
	if err != nil {
		t.Fatalf("ScheduleXLSX: %v", err)
	}

	xlsx, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer xlsx.Close()

	rows, _ := xlsx.GetRows(summarySheet)
	found := false
	for _, r := range rows {
		if len(r) > 0 && r[0] == "This payment plan will not pay off the balance." {
			found = true
		}
	}
	if !found {
		t.Error("non-convergence warning missing from summary")
	}
}
