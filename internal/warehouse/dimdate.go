package warehouse

import (
	"context"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// DateRows returns one DimDate per calendar day in [start, end]. A start
// after end yields no rows.
func DateRows(start, end time.Time) []DimDate {
	start, end = civilDate(start), civilDate(end)
	if start.After(end) {
		return nil
	}

	days := int(end.Sub(start).Hours()/24) + 1
	rows := make([]DimDate, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		_, week := d.ISOWeek()
		weekday := d.Weekday()
		rows = append(rows, DimDate{
			DateKey:    DateKey(d),
			FullDate:   d,
			Year:       d.Year(),
			Quarter:    (int(d.Month())-1)/3 + 1,
			Month:      int(d.Month()),
			Day:        d.Day(),
			MonthName:  d.Month().String(),
			DayName:    weekday.String(),
			WeekOfYear: week,
			IsWeekend:  weekday == time.Saturday || weekday == time.Sunday,
		})
	}
	return rows
}

// BuildDimDate rebuilds dim_date for the given range. An invalid range
// empties the table.
func (b *Builder) BuildDimDate(ctx context.Context, dr DateRange) (int64, error) {
	var rows []DimDate
	if dr.Valid {
		rows = DateRows(dr.Start, dr.End)
	}
	if err := b.store.ReplaceDimDate(ctx, rows); err != nil {
		return 0, newBuildError(TableDimDate, StageDimension, ErrReplaceFailed, err)
	}

	event := logging.Info().
		Str("table", TableDimDate).
		Int("rows", len(rows))
	if dr.Valid {
		event = event.
			Str("start", dr.Start.Format(time.DateOnly)).
			Str("end", dr.End.Format(time.DateOnly))
	}
	event.Msg("Built date dimension")
	return int64(len(rows)), nil
}
