package parser

import (
	"context"
	"fmt"
	"testing"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
	"github.com/FACorreiaa/sales-analytics/internal/testutil"
)

func BenchmarkCSVParse(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		data := testutil.GreekCSV(testutil.NewSalesGenerator(42).Rows(size))
		open := memOpener(map[string][]byte{"s.csv": data})
		p := NewRowParser(MustLocale(DefaultCulture))
		m := inference.SuggestMap(testutil.GreekHeaders)

		b.Run(fmt.Sprintf("%d_rows", size), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				src := NewCSVSource("s.csv", open)
				for row, err := range src.Rows(context.Background()) {
					if err != nil {
						b.Fatal(err)
					}
					if _, err := p.Parse(row, m); err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}

func BenchmarkParseDecimal(b *testing.B) {
	el := MustLocale("el-GR")
	inputs := []string{"1234,56", "1.234,56", "100.00", "(12,50)"}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseDecimal(inputs[i%len(inputs)], el)
	}
}
