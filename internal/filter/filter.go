package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"pizza-dashboard/internal/models"
	"pizza-dashboard/internal/store"
)

// Criteria holds the three inclusion sets. A row passes when its month,
// category and size are each in the matching set; an empty set admits
// nothing.
type Criteria struct {
	Months     []time.Month
	Categories []models.Category
	Sizes      []models.Size
}

// All returns criteria admitting every value observed in set.
func All(set *store.TransactionSet) Criteria {
	return Criteria{
		Months:     set.Months(),
		Categories: set.Categories(),
		Sizes:      set.Sizes(),
	}
}

// Normalize returns a sorted, de-duplicated copy. Nil sets become empty.
func (c Criteria) Normalize() Criteria {
	return Criteria{
		Months:     normalize(c.Months),
		Categories: normalize(c.Categories),
		Sizes:      normalize(c.Sizes),
	}
}

func normalize[T interface{ ~int | ~string }](in []T) []T {
	out := slices.Clone(in)
	if out == nil {
		out = []T{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Key is a content hash of the normalized criteria. Equal selections give
// equal keys regardless of input order.
func (c Criteria) Key() string {
	n := c.Normalize()

	var b strings.Builder
	b.WriteString("m:")
	for _, m := range n.Months {
		b.WriteString(m.String())
		b.WriteByte(0)
	}
	b.WriteString("|c:")
	for _, cat := range n.Categories {
		b.WriteString(string(cat))
		b.WriteByte(0)
	}
	b.WriteString("|s:")
	for _, s := range n.Sizes {
		b.WriteString(s.String())
		b.WriteByte(0)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Apply returns the view of set matching c. The set is not modified.
func Apply(set *store.TransactionSet, c Criteria) *store.View {
	months := toSet(c.Months)
	categories := toSet(c.Categories)
	sizes := toSet(c.Sizes)

	if len(months) == 0 || len(categories) == 0 || len(sizes) == 0 {
		return set.Select(func(models.Transaction) bool { return false })
	}

	return set.Select(func(tx models.Transaction) bool {
		_, okMonth := months[tx.Month]
		_, okCategory := categories[tx.Category]
		_, okSize := sizes[tx.Size]
		return okMonth && okCategory && okSize
	})
}

func toSet[T comparable](values []T) map[T]struct{} {
	m := make(map[T]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
