package repository

import "time"

// DimDate is one row of the calendar dimension.
type DimDate struct {
	DateKey     int       `json:"dateKey"`
	Date        time.Time `json:"date"`
	Year        int       `json:"year"`
	Quarter     int       `json:"quarter"`
	Month       int       `json:"month"`
	MonthName   string    `json:"monthName"`
	MonthNameEl string    `json:"monthNameEl"`
	Day         int       `json:"day"`
	ISOWeek     int       `json:"isoWeek"`
}

var greekMonthNames = [...]string{
	"Ιανουάριος", "Φεβρουάριος", "Μάρτιος", "Απρίλιος", "Μάιος", "Ιούνιος",
	"Ιούλιος", "Αύγουστος", "Σεπτέμβριος", "Οκτώβριος", "Νοέμβριος", "Δεκέμβριος",
}

// DateKey encodes a calendar date as yyyymmdd.
func DateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// DateFromKey is the inverse of DateKey.
func DateFromKey(key int) time.Time {
	return time.Date(key/10000, time.Month(key/100%100), key%100, 0, 0, 0, 0, time.UTC)
}

func NewDimDate(t time.Time) DimDate {
	y, m, d := t.Date()
	_, week := t.ISOWeek()
	return DimDate{
		DateKey:     DateKey(t),
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Year:        y,
		Quarter:     (int(m)-1)/3 + 1,
		Month:       int(m),
		MonthName:   m.String(),
		MonthNameEl: greekMonthNames[m-1],
		Day:         d,
		ISOWeek:     week,
	}
}
