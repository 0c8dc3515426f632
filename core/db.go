package core

type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses "field" / "-field" into an Ordering.
func ParseOrdering(s string) (Ordering, bool) {
	s = CleanString(s)
	if s == "" || s == "-" {
		return Ordering{}, false
	}
	if s[0] == '-' {
		return Ordering{Field: s[1:], Ascending: false}, true
	}
	return Ordering{Field: s, Ascending: true}, true
}
