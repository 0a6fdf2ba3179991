package domain

// Departments is the campus department catalog. Issues and professor
// accounts reference these values; an issue's department is fixed at
// creation and decides which professors can act on it.
var Departments = []string{
	"CSE/IT",
	"CHEMICAL",
	"ECE",
	"ELECTRICAL",
	"MECHANICAL",
	"MINING",
	"CIVIL",
	"METALLURGY",
	"PRODUCTION",
	"ADMINISTRATION",
	"GENERAL WARDEN",
	"LECTURE HALL COMPLEX",
}

// ValidDepartment reports whether the name is in the catalog.
func ValidDepartment(name string) bool {
	for _, dept := range Departments {
		if dept == name {
			return true
		}
	}
	return false
}
