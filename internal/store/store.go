package store

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"pizza-dashboard/internal/models"
)

// TransactionSet is the loaded dataset. It is immutable once built; all
// filtering happens through read-only Views.
type TransactionSet struct {
	rows       []models.Transaction
	categories []models.Category
	sizes      []models.Size
	months     []time.Month
}

// NewTransactionSet copies rows, derives their calendar fields and records
// the observed categories, sizes and months.
func NewTransactionSet(rows []models.Transaction) *TransactionSet {
	s := &TransactionSet{rows: slices.Clone(rows)}

	categories := make(map[models.Category]struct{})
	sizes := make(map[models.Size]struct{})
	months := make(map[time.Month]struct{})
	for i := range s.rows {
		s.rows[i].Derive()
		categories[s.rows[i].Category] = struct{}{}
		sizes[s.rows[i].Size] = struct{}{}
		months[s.rows[i].Month] = struct{}{}
	}

	s.categories = sortedKeys(categories)
	s.sizes = sortedKeys(sizes)
	s.months = sortedKeys(months)
	return s
}

func sortedKeys[K cmp.Ordered](m map[K]struct{}) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *TransactionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}

// Categories returns the observed categories sorted by name.
func (s *TransactionSet) Categories() []models.Category {
	if s == nil {
		return []models.Category{}
	}
	return slices.Clone(s.categories)
}

// Sizes returns the observed sizes smallest first.
func (s *TransactionSet) Sizes() []models.Size {
	if s == nil {
		return []models.Size{}
	}
	return slices.Clone(s.sizes)
}

// Months returns the observed months in calendar order.
func (s *TransactionSet) Months() []time.Month {
	if s == nil {
		return []time.Month{}
	}
	return slices.Clone(s.months)
}

// Rows returns a copy of every transaction in load order.
func (s *TransactionSet) Rows() []models.Transaction {
	if s == nil {
		return nil
	}
	return slices.Clone(s.rows)
}

// View returns an unfiltered view over the whole set.
func (s *TransactionSet) View() *View {
	return s.Select(func(models.Transaction) bool { return true })
}

// Select returns a view of the rows for which keep reports true.
func (s *TransactionSet) Select(keep func(models.Transaction) bool) *View {
	v := &View{set: s, idx: []int{}}
	if s == nil {
		return v
	}
	for i, tx := range s.rows {
		if keep(tx) {
			v.idx = append(v.idx, i)
		}
	}
	return v
}

// View is a read-only row subset of a TransactionSet, in load order.
type View struct {
	set *TransactionSet
	idx []int
}

// EmptyView is a view with no rows and no backing set.
func EmptyView() *View {
	return &View{idx: []int{}}
}

func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.idx)
}

// All yields copies of the rows in the view.
func (v *View) All() iter.Seq[models.Transaction] {
	return func(yield func(models.Transaction) bool) {
		if v == nil || v.set == nil {
			return
		}
		for _, i := range v.idx {
			if !yield(v.set.rows[i]) {
				return
			}
		}
	}
}
