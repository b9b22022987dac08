package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t ", ""},
		{"greek with accent and trailing space", "Ημερομηνία ", "ημερομηνια"},
		{"greek already plain", "ημερομηνια", "ημερομηνια"},
		{"english upper case", "Transaction Date", "transaction date"},
		{"collapses inner spaces", "Doc    Date", "doc date"},
		{"drops punctuation", "Qty.", "qty"},
		{"drops underscores", "net_amount", "netamount"},
		{"latin accents", "Désignation", "designation"},
		{"keeps digits", "Amount 2024", "amount 2024"},
		{"greek product", "Προϊόν", "προιον"},
		{"greek upper case sigma", "ΠΕΛΑΤΗΣ", "πελατησ"},
		{"greek final sigma folds", "Πελάτης", "πελατησ"},
		{"tab is removed not collapsed", "doc\tdate", "docdate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Header(tt.input))
		})
	}
}

func TestHeader_Equivalence(t *testing.T) {
	assert.Equal(t, Header("ημερομηνια"), Header("Ημερομηνία "))
	assert.Equal(t, Header("ΠΟΣΟΤΗΤΑ"), Header("Ποσότητα"))
	assert.Equal(t, Header("Πελάτης"), Header("ΠΕΛΑΤΗΣ"))
}

func TestHeader_Idempotent(t *testing.T) {
	for _, in := range []string{"Ημερομηνία", "Transaction  Date", "Κωδικός Προϊόντος"} {
		once := Header(in)
		assert.Equal(t, once, Header(once), in)
	}
}
