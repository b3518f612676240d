// Command payoff runs the payoff engine from the terminal and administers a
// server data directory.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin"
	"golang.org/x/term"

	"debtplan/internal/format"
	"debtplan/internal/models"
	"debtplan/internal/services/payoff"
	"debtplan/internal/services/report"
	"debtplan/internal/services/storage"
	"debtplan/internal/version"
)

// cardFlags are shared by every command that runs the engine
type cardFlags struct {
	principal *float64
	apr       *float64
	floor     *float64
	pct       *float64
}

func addCardFlags(cmd *kingpin.CmdClause) cardFlags {
	return cardFlags{
		principal: cmd.Flag("principal", "Current balance in dollars").Short('b').Required().Float64(),
		apr:       cmd.Flag("apr", "Annual percentage rate, e.g. 18 for 18%").Short('r').Required().Float64(),
		floor:     cmd.Flag("floor", "Minimum payment floor in dollars").Default("25").Float64(),
		pct:       cmd.Flag("pct", "Percent of balance added to interest for the minimum (issuers use 1.5); 0 pays the floor only").Default("0").Float64(),
	}
}

func (f cardFlags) params(extra float64) models.PayoffParameters {
	return models.PayoffParameters{
		Principal:                   *f.principal,
		AnnualPercentageRate:        *f.apr,
		MinimumPaymentFloor:         *f.floor,
		RequiredPrincipalPercentage: *f.pct,
		AdditionalMonthlyPayment:    extra,
	}
}

// passwordReader is replaced in tests
var passwordReader = readPassword

var now = time.Now

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "payoff: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	app := kingpin.New("payoff", "Credit card payoff calculator")
	app.Version(version.Get().String())

	cmdSchedule := app.Command("schedule", "Show how long a balance takes to pay off")
	schedFlags := addCardFlags(cmdSchedule)
	schedExtra := cmdSchedule.Flag("extra", "Extra payment each month").Default("0").Float64()
	schedTable := cmdSchedule.Flag("table", "Print the month-by-month schedule").Short('t').Bool()

	cmdCompare := app.Command("compare", "Compare minimum payments with paying extra")
	cmpFlags := addCardFlags(cmdCompare)
	cmpExtra := cmdCompare.Flag("with-extra", "Extra payment each month").Required().Float64()

	cmdExport := app.Command("export", "Write the schedule to an XLSX workbook")
	expFlags := addCardFlags(cmdExport)
	expExtra := cmdExport.Flag("extra", "Extra payment each month").Default("0").Float64()
	expOut := cmdExport.Flag("out", "Output file").Short('o').Required().String()

	cmdEncrypt := app.Command("encrypt", "Encrypt a server data directory")
	encDir := cmdEncrypt.Flag("data-dir", "Data directory").Default("data").String()

	cmdDecrypt := app.Command("decrypt", "Decrypt a server data directory")
	decDir := cmdDecrypt.Flag("data-dir", "Data directory").Default("data").String()

	cmd, err := app.Parse(args)
	if err != nil {
		return err
	}

	switch cmd {
	case cmdSchedule.FullCommand():
		return scheduleCommand(out, schedFlags.params(*schedExtra), *schedTable)
	case cmdCompare.FullCommand():
		return compareCommand(out, cmpFlags.params(0), *cmpExtra)
	case cmdExport.FullCommand():
		return exportCommand(out, expFlags.params(*expExtra), *expOut)
	case cmdEncrypt.FullCommand():
		return encryptCommand(out, *encDir)
	case cmdDecrypt.FullCommand():
		return decryptCommand(out, *decDir)
	}
	return nil
}

func scheduleCommand(out io.Writer, p models.PayoffParameters, table bool) error {
	result, err := payoff.Compute(p)
	if err != nil {
		return err
	}

	printSummary(out, result.Summary)
	if table {
		fmt.Fprintln(out)
		printTable(out, result.Schedule)
	}
	return nil
}

func printSummary(out io.Writer, s models.PayoffSummary) {
	if !s.PaidOff {
		fmt.Fprintf(out, "This payment plan will not pay off the balance.\n")
		fmt.Fprintf(out, "Still owed after %s: %s\n", format.Duration(s.MonthsToPayoff), format.Money(s.RemainingBalance))
		fmt.Fprintf(out, "Interest paid:        %s\n", format.Money(s.TotalInterestPaid))
		return
	}
	fmt.Fprintf(out, "Paid off in:    %s (%d payments)\n", format.Duration(s.MonthsToPayoff), s.MonthsToPayoff)
	fmt.Fprintf(out, "Debt-free by:   %s\n", format.MonthYear(payoff.DebtFreeDate(now(), s.MonthsToPayoff)))
	fmt.Fprintf(out, "Total interest: %s\n", format.Money(s.TotalInterestPaid))
	fmt.Fprintf(out, "Total paid:     %s\n", format.Money(s.TotalPaid))
}

func printTable(out io.Writer, schedule []models.ScheduleEntry) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tStart\tInterest\tPayment\tPrincipal\tEnd\t")
	for _, e := range schedule {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			e.Month,
			format.Money(e.StartingBalance),
			format.Money(e.InterestAccrued),
			format.Money(e.PaymentMade),
			format.Money(e.PrincipalApplied),
			format.Money(e.EndingBalance))
	}
	tw.Flush()
}

func compareCommand(out io.Writer, p models.PayoffParameters, extra float64) error {
	cmp, err := payoff.CompareScenarios(p, extra)
	if err != nil {
		return err
	}

	months := func(s models.PayoffSummary) string {
		if !s.PaidOff {
			return "never"
		}
		return format.Duration(s.MonthsToPayoff)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\tMinimum only\tWith %s extra\n", format.Money(extra))
	fmt.Fprintf(tw, "Payoff\t%s\t%s\n", months(cmp.Baseline), months(cmp.Scenario))
	fmt.Fprintf(tw, "Interest\t%s\t%s\n", format.Money(cmp.Baseline.TotalInterestPaid), format.Money(cmp.Scenario.TotalInterestPaid))
	fmt.Fprintf(tw, "Total paid\t%s\t%s\n", format.Money(cmp.Baseline.TotalPaid), format.Money(cmp.Scenario.TotalPaid))
	tw.Flush()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Months saved:   %d\n", cmp.MonthsSaved)
	if cmp.InterestSavedKnown() {
		fmt.Fprintf(out, "Interest saved: %s\n", format.Money(*cmp.InterestSaved))
	} else {
		fmt.Fprintf(out, "Interest saved: not meaningful, minimum payments never pay this balance off\n")
	}
	return nil
}

func exportCommand(out io.Writer, p models.PayoffParameters, path string) error {
	result, err := payoff.Compute(p)
	if err != nil {
		return err
	}

	var cmp *models.ScenarioComparison
	if p.AdditionalMonthlyPayment > 0 {
		if cmp, err = payoff.CompareScenarios(p, p.AdditionalMonthlyPayment); err != nil {
			return err
		}
	}

	data, err := report.ScheduleXLSX(p, result.Schedule, result.Summary, cmp, now())
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(out, "Wrote %d months to %s\n", len(result.Schedule), path)
	return nil
}

func encryptCommand(out io.Writer, dir string) error {
	s, err := storage.New(dir)
	if err != nil {
		return err
	}
	if s.IsEncrypted() {
		return errors.New("data directory is already encrypted")
	}

	password, err := passwordReader("New password: ")
	if err != nil {
		return err
	}
	confirm, err := passwordReader("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := s.EnableEncryption(password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Encrypted %s\n", dir)
	return nil
}

func decryptCommand(out io.Writer, dir string) error {
	s, err := storage.New(dir)
	if err != nil {
		return err
	}
	if !s.IsEncrypted() {
		return errors.New("data directory is not encrypted")
	}

	password, err := passwordReader("Password: ")
	if err != nil {
		return err
	}
	if err := s.DisableEncryption(password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Decrypted %s\n", dir)
	return nil
}

// readPassword prefers DEBTPLAN_PASSWORD so scripts can run unattended
func readPassword(prompt string) (string, error) {
	if p := os.Getenv("DEBTPLAN_PASSWORD"); p != "" {
		return p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no terminal to read a password from; set DEBTPLAN_PASSWORD")
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
