package repository

// Table name constants used in hand-written joins.
const (
	tableUsers       = "users"
	tableEvents      = "events"
	tableData        = "data"
	tableReports     = "reports"
	tableAttachments = "attachments"
	tableStars       = "stars"
)
