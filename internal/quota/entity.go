// AngelaMos | 2026
// entity.go

package quota

import (
	"time"
)

// Resource is a per-month counted action. Each resource maps to one fixed
// column; callers can never name a column directly.
type Resource string

const (
	ResourceListings      Resource = "listings"
	ResourceConversations Resource = "conversations"
)

func (r Resource) Valid() bool {
	_, ok := resourceColumns[r]
	return ok
}

var resourceColumns = map[Resource]string{
	ResourceListings:      "listings_created",
	ResourceConversations: "conversations_opened",
}

// Unlimited as a plan limit disables counting entirely.
const Unlimited = -1

type Counter struct {
	UserID              string    `db:"user_id"`
	MonthKey            string    `db:"month_key"`
	ListingsCreated     int64     `db:"listings_created"`
	ConversationsOpened int64     `db:"conversations_opened"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (c *Counter) Used(resource Resource) int64 {
	switch resource {
	case ResourceListings:
		return c.ListingsCreated
	case ResourceConversations:
		return c.ConversationsOpened
	}
	return 0
}

// Limits are the monthly allowances of a plan. A nil limit means the action
// is not permitted on the plan, -1 means unlimited.
type Limits struct {
	ListingsPerMonth      *int
	ConversationsPerMonth *int
}

func UnlimitedLimits() Limits {
	unlimited := Unlimited
	return Limits{ListingsPerMonth: &unlimited, ConversationsPerMonth: &unlimited}
}

func (l Limits) For(resource Resource) float64 {
	var limit *int
	switch resource {
	case ResourceListings:
		limit = l.ListingsPerMonth
	case ResourceConversations:
		limit = l.ConversationsPerMonth
	}
	if limit == nil {
		return 0
	}
	return float64(*limit)
}

// MonthKey identifies the calendar month t falls in, in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01")
}
