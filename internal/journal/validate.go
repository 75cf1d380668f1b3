package journal

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/asientos/internal/model"
)

// Tolerance is the largest debit/credit difference still considered
// balanced. A difference equal to the tolerance passes.
var Tolerance = decimal.New(1, -2)

// Validate checks proposed lines against the double-entry rules using the
// default tolerance. It is pure: it never touches storage.
func Validate(lines []model.Line, declaredTotal decimal.Decimal) error {
	return ValidateWithTolerance(lines, declaredTotal, Tolerance)
}

// ValidateWithTolerance runs the checks in order and returns the first
// failure:
//
//  1. at least two lines
//  2. each line has exactly one strictly positive side, in whole cents
//  3. debits equal credits within tol
//  4. debits equal the declared total within tol
//  5. no line names both a client and a supplier
func ValidateWithTolerance(lines []model.Line, declaredTotal, tol decimal.Decimal) error {
	if len(lines) < 2 {
		return &TooFewLinesError{Count: len(lines)}
	}

	for i, l := range lines {
		if err := checkSides(i, l); err != nil {
			return err
		}
	}

	debits, credits := Sums(lines)
	if debits.Sub(credits).Abs().GreaterThan(tol) {
		return &UnbalancedEntryError{Debits: debits, Credits: credits}
	}

	if debits.Sub(declaredTotal).Abs().GreaterThan(tol) {
		return &TotalMismatchError{Declared: declaredTotal, Computed: debits}
	}

	for i, l := range lines {
		if err := checkCounterparty(i, l); err != nil {
			return err
		}
	}
	return nil
}

// CheckLines runs only the per-line checks. Drafts use it: they must be well
// formed but need not balance yet.
func CheckLines(lines []model.Line) error {
	for i, l := range lines {
		if err := checkSides(i, l); err != nil {
			return err
		}
	}
	for i, l := range lines {
		if err := checkCounterparty(i, l); err != nil {
			return err
		}
	}
	return nil
}

// Sums returns the debit and credit totals of lines.
func Sums(lines []model.Line) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// amountPlaces is the scale of every stored amount column.
const amountPlaces = 2

func checkSides(i int, l model.Line) error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() || l.Debit.IsPositive() == l.Credit.IsPositive() {
		return &MalformedLineError{Index: i, Debit: l.Debit, Credit: l.Credit}
	}
	if !l.Debit.Equal(l.Debit.Truncate(amountPlaces)) {
		return &PrecisionError{Index: i, Side: "debit", Amount: l.Debit}
	}
	if !l.Credit.Equal(l.Credit.Truncate(amountPlaces)) {
		return &PrecisionError{Index: i, Side: "credit", Amount: l.Credit}
	}
	return nil
}

func checkCounterparty(i int, l model.Line) error {
	if l.ClientID != "" && l.SupplierID != "" {
		return &AmbiguousCounterpartyError{Index: i, ClientID: l.ClientID, SupplierID: l.SupplierID}
	}
	return nil
}
