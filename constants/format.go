package constants

// Format identifies which structural parser handled a blotter document.
type Format string

const (
	FormatGCSO    Format = "gcso"
	FormatHelena  Format = "helena"
	FormatHavre   Format = "havre"
	FormatGeneric Format = "generic"
)

var allFormats = []Format{FormatGCSO, FormatHelena, FormatHavre, FormatGeneric}

// Formats returns every known format tag in dispatch order.
func Formats() []Format {
	out := make([]Format, len(allFormats))
	copy(out, allFormats)
	return out
}

// ParseFormat maps a stored tag back to a Format.
func ParseFormat(s string) (Format, bool) {
	for _, f := range allFormats {
		if string(f) == s {
			return f, true
		}
	}
	return FormatGeneric, false
}

// Jurisdiction defaults used when a document names no county or location.
const (
	UnknownCounty   = "Unknown"
	UnknownLocation = "Unknown"
	UnknownType     = "Unknown"

	HelenaCounty   = "Lewis and Clark"
	HelenaLocation = "Helena, MT"
	HavreCounty    = "Hill"
	HavreLocation  = "Havre, MT"
	GallatinCounty = "Gallatin"
)
