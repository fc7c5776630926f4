package filter

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"pizza-dashboard/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Months and sizes are accepted exactly when the model parsers accept
	// them, case-insensitively.
	v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		_, err := models.ParseMonth(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("size", func(fl validator.FieldLevel) bool {
		_, err := models.ParseSize(fl.Field().String())
		return err == nil
	})
	return v
}

// Selection is the wire form of Criteria as sent by the UI. A nil field
// means "not specified" and falls back to the defaults; an empty,
// non-nil field is an explicit empty set.
type Selection struct {
	Months     []string `json:"months" validate:"omitempty,dive,month"`
	Categories []string `json:"categories" validate:"omitempty,dive,required,max=64"`
	Sizes      []string `json:"sizes" validate:"omitempty,dive,size"`
}

// ValidationError reports a selection value that is not acceptable.
type ValidationError struct {
	Field string
	Value any
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: failed %s", e.Field, fmt.Sprint(e.Value), e.Rule)
}

// SelectionOf renders c in wire form.
func SelectionOf(c Criteria) Selection {
	s := Selection{
		Months:     make([]string, 0, len(c.Months)),
		Categories: make([]string, 0, len(c.Categories)),
		Sizes:      make([]string, 0, len(c.Sizes)),
	}
	for _, m := range c.Months {
		s.Months = append(s.Months, m.String())
	}
	for _, cat := range c.Categories {
		s.Categories = append(s.Categories, string(cat))
	}
	for _, size := range c.Sizes {
		s.Sizes = append(s.Sizes, size.String())
	}
	return s
}

// Criteria validates s and resolves it against defaults. Categories must
// be among the defaults' categories, matched case-insensitively.
func (s Selection) Criteria(defaults Criteria) (Criteria, error) {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return Criteria{}, &ValidationError{Field: fe.Field(), Value: fe.Value(), Rule: fe.Tag()}
		}
		return Criteria{}, fmt.Errorf("validate selection: %w", err)
	}

	c := defaults.Normalize()

	if s.Months != nil {
		c.Months = make([]time.Month, 0, len(s.Months))
		for _, name := range s.Months {
			m, err := models.ParseMonth(name)
			if err != nil {
				return Criteria{}, &ValidationError{Field: "months", Value: name, Rule: "month"}
			}
			c.Months = append(c.Months, m)
		}
	}
	if s.Categories != nil {
		c.Categories = make([]models.Category, 0, len(s.Categories))
		for _, name := range s.Categories {
			i := slices.IndexFunc(defaults.Categories, func(cat models.Category) bool {
				return strings.EqualFold(string(cat), name)
			})
			if i < 0 {
				return Criteria{}, &ValidationError{Field: "categories", Value: name, Rule: "observed"}
			}
			c.Categories = append(c.Categories, defaults.Categories[i])
		}
	}
	if s.Sizes != nil {
		c.Sizes = make([]models.Size, 0, len(s.Sizes))
		for _, name := range s.Sizes {
			size, err := models.ParseSize(name)
			if err != nil {
				return Criteria{}, &ValidationError{Field: "sizes", Value: name, Rule: "size"}
			}
			c.Sizes = append(c.Sizes, size)
		}
	}

	return c.Normalize(), nil
}

// FromQuery reads months, categories and sizes from query parameters.
// Values may repeat or be comma separated; "sizes=" selects no sizes.
func FromQuery(q url.Values) Selection {
	return Selection{
		Months:     listParam(q, "months"),
		Categories: listParam(q, "categories"),
		Sizes:      listParam(q, "sizes"),
	}
}

// Parse is FromQuery followed by Criteria.
func Parse(q url.Values, defaults Criteria) (Criteria, error) {
	return FromQuery(q).Criteria(defaults)
}

func listParam(q url.Values, key string) []string {
	values, ok := q[key]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
