package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		header string
		field  CanonicalField
		want   float64
	}{
		{"greek exact with accents", "Ημερομηνία", FieldDate, 1.0},
		{"english exact multi word", "Transaction Date", FieldDate, 1.0},
		{"greek compound exact", "Κωδικός Προϊόντος", FieldProduct, 1.0},
		{"upper case greek customer", "ΠΕΛΑΤΗΣ", FieldCustomer, 1.0},
		{"contains synonym", "Sales Date", FieldDate, 0.8},
		{"contains english amount", "Net Amount", FieldAmount, 0.8},
		{"greek abbreviation", "Ημ/νία", FieldDate, 0.8},
		{"length fallback", "Amount", FieldDate, 0.45},
		{"empty header", "", FieldDate, 0.4},
		{"unrelated same length", "Αξία", FieldAmount, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.header, tt.field), 1e-9)
		})
	}
}

func TestScore_Range(t *testing.T) {
	headers := []string{"", "x", "a very long header that matches nothing at all", "Ποσό", "qty"}
	for _, h := range headers {
		for _, f := range Fields {
			s := Score(h, f)
			assert.GreaterOrEqual(t, s, 0.0, "%q/%s", h, f)
			assert.LessOrEqual(t, s, 1.0, "%q/%s", h, f)
		}
	}
}

func TestSuggestMap(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    HeaderMapping
	}{
		{
			name:    "greek template headers",
			headers: []string{"Ημερομηνία", "Προϊόν", "Πελάτης", "Ποσότητα", "Ποσό"},
			want: HeaderMapping{
				FieldDate:     "Ημερομηνία",
				FieldProduct:  "Προϊόν",
				FieldCustomer: "Πελάτης",
				FieldQuantity: "Ποσότητα",
				FieldAmount:   "Ποσό",
			},
		},
		{
			name:    "english headers in another order",
			headers: []string{"Amount", "Customer", "Date", "SKU"},
			want: HeaderMapping{
				FieldDate:     "Date",
				FieldProduct:  "SKU",
				FieldCustomer: "Customer",
				FieldAmount:   "Amount",
			},
		},
		{
			name:    "ties resolve to the first header",
			headers: []string{"Date", "Item", "Client", "Total", "Net"},
			want: HeaderMapping{
				FieldDate:     "Date",
				FieldProduct:  "Item",
				FieldCustomer: "Client",
				FieldAmount:   "Total",
			},
		},
		{
			name:    "nothing recognizable",
			headers: []string{"foo", "bar"},
			want:    HeaderMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestMap(tt.headers))
		})
	}
}

func TestSuggestMap_NeverReusesHeader(t *testing.T) {
	got := SuggestMap([]string{"Date", "Date"})

	assert.Equal(t, "Date", got[FieldDate])
	used := map[string]int{}
	for _, h := range got {
		used[h]++
	}
	for h, n := range used {
		assert.Equal(t, 1, n, "header %q assigned %d times", h, n)
	}
}

func TestSuggestMap_Idempotent(t *testing.T) {
	headers := []string{"Ημ/νία", "Περιγραφή", "Αγοραστής", "Τεμ.", "Καθαρό"}

	first := SuggestMap(headers)
	second := SuggestMap(headers)

	assert.Equal(t, first, second)
	assert.True(t, first.Complete())
}

func TestHeaderMapping_Missing(t *testing.T) {
	m := HeaderMapping{FieldDate: "Date", FieldProduct: "  ", FieldQuantity: "Qty"}

	assert.Equal(t, []CanonicalField{FieldProduct, FieldCustomer, FieldAmount}, m.Missing())
	assert.Equal(t, "Product, Customer, Amount", FormatFields(m.Missing()))
	assert.Equal(t, PartialMapping, m.Completeness())
	assert.Equal(t, NoMapping, HeaderMapping(nil).Completeness())
}

func TestResolve(t *testing.T) {
	headers := []string{"Date", "Product", "Customer", "Amount"}

	t.Run("complete persisted mapping wins verbatim", func(t *testing.T) {
		persisted := HeaderMapping{
			FieldDate:     "Doc",
			FieldProduct:  "Item Code",
			FieldCustomer: "Buyer",
			FieldAmount:   "Gross",
		}
		got := Resolve(headers, persisted)
		assert.Equal(t, persisted, got)
	})

	t.Run("partial persisted mapping is discarded", func(t *testing.T) {
		persisted := HeaderMapping{FieldDate: "Doc", FieldProduct: "Item Code", FieldCustomer: "Buyer"}
		got := Resolve(headers, persisted)
		assert.Equal(t, SuggestMap(headers), got)
		assert.Equal(t, "Date", got[FieldDate])
	})

	t.Run("no persisted mapping infers", func(t *testing.T) {
		got := Resolve(headers, nil)
		assert.True(t, got.Complete())
	})
}

func TestLoadSynonyms(t *testing.T) {
	t.Run("empty path returns built-ins", func(t *testing.T) {
		table, err := LoadSynonyms("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSynonyms(), table)
	})

	t.Run("missing file returns built-ins", func(t *testing.T) {
		table, err := LoadSynonyms(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultSynonyms(), table)
	})

	t.Run("extends a field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		require.NoError(t, os.WriteFile(path, []byte("synonyms:\n  amount: [\"Αξία\"]\n"), 0o644))

		table, err := LoadSynonyms(path)
		require.NoError(t, err)

		m := NewMatcher(table)
		assert.InDelta(t, 1.0, m.Score("ΑΞΙΑ", FieldAmount), 1e-9)
		assert.Contains(t, m.Synonyms(FieldAmount), "αξια")
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		require.NoError(t, os.WriteFile(path, []byte("synonyms:\n  Price: [x]\n"), 0o644))

		_, err := LoadSynonyms(path)
		assert.Error(t, err)
	})
}
