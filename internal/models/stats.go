package models

// DailyUploads counts uploads on one calendar day.
type DailyUploads struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StatsOverview feeds the admin dashboard.
type StatsOverview struct {
	TotalPosts      int            `json:"totalPosts"`
	TotalUsers      int            `json:"totalUsers"`
	TotalAdmins     int            `json:"totalAdmins"`
	RegularUsers    int            `json:"regularUsers"`
	PostsByFaculty  map[string]int `json:"postsByFaculty"`
	PostsByFileType map[string]int `json:"postsByFileType"`
	UploadTrend     []DailyUploads `json:"uploadTrend"`
	RecentActions   []AdminLog     `json:"recentActions"`
}
