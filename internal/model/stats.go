package model

// ArchiveStats is the admin console overview.
type ArchiveStats struct {
	Users    int `db:"users" json:"users"`
	Groups   int `db:"groups" json:"groups"`
	Members  int `db:"members" json:"members"`
	Events   int `db:"events" json:"events"`
	Photos   int `db:"photos" json:"photos"`
	Stories  int `db:"stories" json:"stories"`
	Comments int `db:"comments" json:"comments"`
}
