package core

// DashboardStats is the compact summary shown on the dashboard.
type DashboardStats struct {
	Month           string `json:"month"`
	TotalMembers    int    `json:"totalMembers"`
	ActiveMembers   int    `json:"activeMembers"`
	InactiveMembers int    `json:"inactiveMembers"`
	TodayCheckIns   int    `json:"todayCheckIns"`
	MonthlyRevenue  int64  `json:"monthlyRevenue"`
	PendingCount    int    `json:"pendingCount"`
	PendingAmount   int64  `json:"pendingAmount"`
	OverdueCount    int    `json:"overdueCount"`
	OverdueAmount   int64  `json:"overdueAmount"`
}
