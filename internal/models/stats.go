package models

// CountByLabel is a generic label/count pair for aggregate rollups.
type CountByLabel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StatsOverview aggregates the whole corpus for the stats endpoint.
type StatsOverview struct {
	TotalCRLs         int            `json:"total_crls"`
	TotalSummaries    int            `json:"total_summaries"`
	TotalEmbeddings   int            `json:"total_embeddings"`
	ByYear            []CountByLabel `json:"letters_by_year"`
	ByApprovalStatus  []CountByLabel `json:"by_approval_status"`
	ByApplicationType []CountByLabel `json:"by_application_type"`
}

// CompanyStats is the per-company rollup.
type CompanyStats struct {
	CompanyName  string `json:"company_name"`
	TotalLetters int    `json:"total_letters"`
	Approved     int    `json:"approved"`
	Unapproved   int    `json:"unapproved"`
}

// CompanyList is the companies leaderboard plus the distinct company count.
type CompanyList struct {
	Companies      []*CompanyStats `json:"companies"`
	TotalCompanies int             `json:"total_companies"`
}

// HealthStatus reports service and data freshness for the health endpoint.
type HealthStatus struct {
	Status          string `json:"status"`
	Database        string `json:"database"`
	TotalCRLs       int    `json:"total_crls"`
	TotalSummaries  int    `json:"total_summaries"`
	TotalEmbeddings int    `json:"total_embeddings"`
	LastDataUpdate  string `json:"last_data_update,omitempty"`
}
