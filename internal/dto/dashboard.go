package dto

import "time"

// ProductStatResponse is one row in the top-products ranking.
type ProductStatResponse struct {
	Article  string `json:"article"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Revenue  int64  `json:"revenue"`
}

// DayRevenueResponse is one day of order volume.
type DayRevenueResponse struct {
	Day     time.Time `json:"day"`
	Orders  int       `json:"orders"`
	Revenue int64     `json:"revenue"`
}

// DashboardResponse aggregates order statistics for a reporting period.
type DashboardResponse struct {
	PeriodDays      int                   `json:"period_days"`
	Orders          int                   `json:"orders"`
	Revenue         int64                 `json:"revenue"`
	StatusCounts    map[string]int        `json:"status_counts"`
	ChannelCounts   map[string]int        `json:"channel_counts"`
	TopProducts     []ProductStatResponse `json:"top_products"`
	DailyRevenue    []DayRevenueResponse  `json:"daily_revenue"`
	RepeatCustomers int                   `json:"repeat_customers"`
	GeneratedAt     time.Time             `json:"generated_at"`
}
