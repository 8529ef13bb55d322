package config

const (
	DefaultTimeZone = "UTC"

	// Fallback categories auto-provisioned when an import references a
	// category that does not exist for the owner.
	FallbackIncomeName   = "Other Income"
	FallbackExpenseName  = "Other Expenses"
	FallbackIncomeColor  = "#22c55e"
	FallbackExpenseColor = "#ef4444"
	FallbackIncomeIcon   = "trending-up"
	FallbackExpenseIcon  = "trending-down"

	MaxDescriptionLen  = 500
	MaxCategoryNameLen = 50
	MaxImportBatchSize = 1000

	// Fallback Sweep Constants
	DefaultSweepSchedule = "0 2 * * *" // nightly, reattaches uncategorized rows
	SweepBatchSize       = 500
)
