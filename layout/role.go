package layout

// Role is the semantic weight of a fragment, derived from its font size
type Role int

const (
	RoleBody         Role = iota // Running text
	RoleMinorHeading             // 13pt up to 16pt
	RoleSubheading               // 16pt up to 22pt
	RoleTitle                    // 22pt and above
)

// Lower bounds, in points, of each heading role. Each bound belongs to the
// role it opens.
const (
	TitleMinSize        = 22.0
	SubheadingMinSize   = 16.0
	MinorHeadingMinSize = 13.0
)

// String returns a string representation of the role
func (r Role) String() string {
	switch r {
	case RoleTitle:
		return "title"
	case RoleSubheading:
		return "subheading"
	case RoleMinorHeading:
		return "minor-heading"
	case RoleBody:
		return "body"
	default:
		return "unknown"
	}
}

// ClassifyFontSize maps a font size in points to a role. It is total: every
// input, NaN and infinities included, yields exactly one role.
func ClassifyFontSize(size float64) Role {
	switch {
	case size >= TitleMinSize:
		return RoleTitle
	case size >= SubheadingMinSize:
		return RoleSubheading
	case size >= MinorHeadingMinSize:
		return RoleMinorHeading
	default:
		return RoleBody
	}
}
