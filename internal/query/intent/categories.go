package intent

// Categories is the fixed equipment vocabulary. Order matters: when a message
// matches several categories the earliest entry wins.
var Categories = []string{
	"tractor",
	"harvester",
	"plough",
	"cultivator",
	"rotavator",
	"thresher",
	"sprayer",
	"seeder",
	"irrigation",
	"drone",
	"other",
}

var irregularPlurals = map[string]string{
	"plough": "ploughs",
}

// Plural returns the plural used in listing text and pattern matching.
func Plural(category string) string {
	if p, ok := irregularPlurals[category]; ok {
		return p
	}
	return category + "s"
}

// IsCategory reports whether c is in the vocabulary.
func IsCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}
