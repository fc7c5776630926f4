package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one pizza line item within an order. Hour, Day and Month
// are derived from OrderDate/OrderTime by Derive.
type Transaction struct {
	OrderID     string
	PizzaID     string
	PizzaName   string
	Category    Category
	Size        Size
	Ingredients string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	OrderDate   time.Time
	OrderTime   time.Duration

	Hour  int
	Day   Weekday
	Month time.Month
}

// Derive fills the calendar fields from OrderDate and OrderTime.
func (t *Transaction) Derive() {
	t.Hour = int(t.OrderTime / time.Hour)
	t.Day = WeekdayOf(t.OrderDate.Weekday())
	t.Month = t.OrderDate.Month()
}

// IngredientList splits the comma separated ingredient field, trimming
// each name and dropping blanks and duplicates.
func (t *Transaction) IngredientList() []string {
	parts := strings.Split(t.Ingredients, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ClockString formats OrderTime as HH:MM:SS.
func (t *Transaction) ClockString() string {
	d := t.OrderTime
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Category is a pizza category such as Classic or Veggie. The set is open:
// whatever the dataset contains is a valid category.
type Category string

// Size is the ordered pizza size.
type Size int

const (
	SizeS Size = iota + 1
	SizeM
	SizeL
	SizeXL
	SizeXXL
)

var sizeNames = map[Size]string{
	SizeS:   "S",
	SizeM:   "M",
	SizeL:   "L",
	SizeXL:  "XL",
	SizeXXL: "XXL",
}

// Sizes lists every size smallest first.
func Sizes() []Size {
	return []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL}
}

func (s Size) String() string {
	if name, ok := sizeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Size(%d)", int(s))
}

func (s Size) Valid() bool {
	_, ok := sizeNames[s]
	return ok
}

func ParseSize(v string) (Size, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for size, name := range sizeNames {
		if name == v {
			return size, nil
		}
	}
	return 0, fmt.Errorf("unknown pizza size %q", v)
}

func (s Size) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid size %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	parsed, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Weekday is a day of the week ordered Monday first.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists the days Monday to Sunday.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// WeekdayOf converts a Sunday-first time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

func (d Weekday) Std() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

func (d Weekday) String() string {
	return d.Std().String()
}

// Months lists January to December.
func Months() []time.Month {
	months := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		months = append(months, m)
	}
	return months
}

// ParseMonth accepts a full English month name, case-insensitively.
func ParseMonth(v string) (time.Month, error) {
	v = strings.TrimSpace(v)
	for _, m := range Months() {
		if strings.EqualFold(m.String(), v) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", v)
}
