package types

// Status is the closed vocabulary of row states.
type Status string

// Statuses, in display order.
const (
	StatusWatchlisted Status = "Watchlisted"
	StatusActive      Status = "Active"
	StatusSubmitted   Status = "Submitted"
	StatusCanceled    Status = "Canceled"
	StatusBookmarked  Status = "Bookmarked"
)

// Category is the closed vocabulary of entry kinds.
type Category string

// Categories, in display order.
const (
	CategoryProject Category = "Project"
	CategoryContest Category = "Contest"
)

// Defaults applied to new rows.
const (
	DefaultStatus   = StatusWatchlisted
	DefaultCategory = CategoryProject
)

// StatusOptions lists every status in display order.
var StatusOptions = []Status{
	StatusWatchlisted,
	StatusActive,
	StatusSubmitted,
	StatusCanceled,
	StatusBookmarked,
}

// CategoryOptions lists every category in display order.
var CategoryOptions = []Category{
	CategoryProject,
	CategoryContest,
}

var validStatuses = map[Status]bool{
	StatusWatchlisted: true,
	StatusActive:      true,
	StatusSubmitted:   true,
	StatusCanceled:    true,
	StatusBookmarked:  true,
}

var validCategories = map[Category]bool{
	CategoryProject: true,
	CategoryContest: true,
}

// statusColors holds the fixed display color of each status.
var statusColors = map[Status]string{
	StatusWatchlisted: "amber",
	StatusActive:      "blue",
	StatusSubmitted:   "emerald",
	StatusCanceled:    "red",
	StatusBookmarked:  "violet",
}

var categoryColors = map[Category]string{
	CategoryProject: "indigo",
	CategoryContest: "pink",
}

// IsValidStatus reports whether s is a recognized status.
func IsValidStatus(s string) bool {
	return validStatuses[Status(s)]
}

// IsValidCategory reports whether s is a recognized category.
func IsValidCategory(s string) bool {
	return validCategories[Category(s)]
}

// Color returns the display color of the status, or "zinc" when unknown.
func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "zinc"
}

// Color returns the display color of the category, or "zinc" when unknown.
func (c Category) Color() string {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return "zinc"
}
