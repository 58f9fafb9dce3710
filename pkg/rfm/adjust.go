package rfm

import (
	"rfm-segments/pkg/calendar"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/region"
)

// Adjuster attaches regional and calendar context to aggregates. It never changes the
// recency, frequency or monetary values.
type Adjuster struct {
	Regions  *region.Table
	Holidays *calendar.Calendar
}

// Annotate returns one output row per aggregate, in the same order, with State, Region and
// HolidayFlags filled. Customers missing from the reference rows get an empty state and
// therefore the Unclassified region.
func (a Adjuster) Annotate(aggs []models.OrderAggregate, customers []models.Customer) []models.CustomerSegment {
	states := make(map[string]string, len(customers))
	for _, c := range customers {
		states[c.CustomerID] = c.State
	}

	out := make([]models.CustomerSegment, len(aggs))
	for i, agg := range aggs {
		state := states[agg.CustomerID]
		row := models.CustomerSegment{
			OrderAggregate: agg,
			State:          state,
			Region:         a.Regions.Lookup(state),
		}
		if a.Holidays != nil {
			row.HolidayFlags = a.Holidays.Flags(agg.LastPurchase)
		}
		out[i] = row
	}
	return out
}
