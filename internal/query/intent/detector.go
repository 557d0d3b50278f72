package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// rule is one step of the cascade. The first rule that matches wins.
type rule struct {
	name  string
	match func(msg string) (Intent, bool)
}

// Detector evaluates an ordered list of rules top to bottom.
type Detector struct {
	rules []rule
}

func NewDetector() *Detector {
	return &Detector{rules: cascade()}
}

var defaultDetector = NewDetector()

// Detect classifies message with the default cascade.
func Detect(message string) Intent {
	return defaultDetector.Detect(message)
}

func (d *Detector) Detect(message string) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	if utf8.RuneCountInString(msg) < 2 {
		return Intent{Kind: VectorSearch}
	}
	for _, r := range d.rules {
		if in, ok := r.match(msg); ok {
			return in
		}
	}
	return Intent{Kind: VectorSearch}
}

// RuleNames lists rule names in evaluation order.
func (d *Detector) RuleNames() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.name
	}
	return names
}

var re = regexp.MustCompile

var (
	platformStatsPatterns = []*regexp.Regexp{
		re(`\b(platform\s*(stats|statistics|summary|overview|data|numbers))\b`),
		re(`\b(overall\s*(stats|statistics|summary|overview))\b`),
		re(`\b(dashboard\s*(stats|data|summary))\b`),
		re(`^(stats|statistics|summary|overview)$`),
	}

	myWord         = re(`\b(my|mine)\b`)
	myBookingWord  = re(`\b(bookings?|reservations?|orders?|rentals?)\b`)
	statusWord     = re(`\b(pending|confirmed|in.?progress|completed|cancelled|canceled)\b`)
	upcomingWord   = re(`\b(upcoming|next|future|scheduled)\b`)
	paymentWord    = re(`\b(payments?|transactions?|invoices?|refunds?)\b`)
	messageWord    = re(`\b(messages?|inbox|chats?|conversations?)\b`)
	myEquipWord    = re(`\b(equipment|machines?|tractors?|listings?)\b`)
	myProfileWord  = re(`\b(profile|account|details|info)\b`)
	myReviewWord   = re(`\b(reviews?|ratings?|feedback)\b`)
	inProgressWord = re(`^in.?progress$`)
	whitespace     = re(`\s+`)

	analyticsWord  = re(`\b(analytics|insights|business|admin)\b`)
	mostRentedWord = re(`\b(most\s+rented|popular|top\s+(?:rented|booked))\b`)
	revenueWord    = re(`\b(revenue|earnings|income|money)\b`)
	idleWord       = re(`\b(idle|unused|inactive|unbooked)\b`)

	availableWord = re(`\bavailable\b`)
	detailWord    = re(`\bdetails?\b`)

	countEquipment = []*regexp.Regexp{
		re(`\b(how\s+many|count|number\s+of|total)\s+(equipment|machines|machinery|tools|items)\b`),
		re(`\b(equipment|machines|machinery)\s+(count|total|number)\b`),
	}
	listEquipment = []*regexp.Regexp{
		re(`\b(list|show|get|fetch|display|all)\s+(all\s+)?(equipment|machines|machinery|tools|items)\b`),
		re(`\b(what\s+(equipment|machines|machinery)\s+(do\s+we|are|is)\s+(have|available|listed|there))\b`),
		re(`\b(equipment|machines|machinery)\s+(list|catalog|catalogue|inventory)\b`),
	}
	availableEquipment = []*regexp.Regexp{
		re(`\b(available|free|ready)\s+(equipment|machines|machinery)\b`),
		re(`\b(equipment|machines|machinery)\s+(available|free|ready|for\s+rent)\b`),
		re(`\bwhat\s+(is|are)\s+available\b`),
	}
	searchEquipment = re(`\b(?:tell\s+me\s+about|details?\s+(?:of|about|for)|info\s+(?:on|about)|what\s+(?:is|about)|search\s+(?:for)?|find)\s+(?:the\s+)?(.+?)(?:\s+equipment)?$`)
	otherEntity     = re(`\b(labou?rs?|labou?rers?|workers?|users?|reviews?|bookings?)\b`)

	labourSkillPatterns = []*regexp.Regexp{
		re(`\b(?:labou?rers?|labou?rs?|workers?)\s+(?:for|with|skilled\s+in|who\s+(?:can|knows?))\s+(.+?)(?:\s+skills?)?$`),
		re(`\b(?:find|need|hire|search\s+for|looking\s+for)\s+(?:an?\s+|some\s+)?(.+?)\s+(?:labou?rers?|labou?rs?|workers?)$`),
	}
	genericSkill = re(`^(all|any|more|the|available|free|ready|active|hire|rent|work|me|us|today|now)$`)

	countLabour = []*regexp.Regexp{
		re(`\b(how\s+many|count|number\s+of|total)\s+(labour|labor|labourers|laborers|workers|labours)\b`),
		re(`\b(labour|labor|worker)\s+(count|total|number)\b`),
	}
	availableLabour = []*regexp.Regexp{
		re(`\b(available|free|ready)\s+(labour|labor|labourers|laborers|workers)\b`),
		re(`\b(labour|labor|labourers|laborers|workers)\s+(available|free|ready)\b`),
		re(`\bwho\s+(?:is|are)\s+available\s+(?:for\s+)?(?:work|hire|labour|labor)\b`),
	}
	listLabour = []*regexp.Regexp{
		re(`\b(list|show|get|fetch|display|all)\s+(all\s+)?(labour|labor|labourers|laborers|workers)\b`),
		re(`\b(labour|labor|workers?)\s+(list|profiles?|directory)\b`),
	}

	countProviders = []*regexp.Regexp{
		re(`\b(how\s+many|count|number\s+of|total)\s+(providers?|owners?|vendors?|suppliers?)\b`),
		re(`\b(providers?|vendors?|suppliers?)\s+(count|total|number)\b`),
	}
	listProviders = []*regexp.Regexp{
		re(`\b(list|show|get|fetch|display|all)\s+(all\s+)?(providers?|equipment\s+owners|owners|vendors?|suppliers?)\b`),
		re(`\b(providers?|vendors?|suppliers?)\s+(list|directory)\b`),
	}

	countUsers = []*regexp.Regexp{
		re(`\b(how\s+many|count|number\s+of|total)\s+(users?|members?|people|accounts?|customers?)\b`),
		re(`\b(users?|members?|accounts?)\s+(count|total|number)\b`),
	}
	listUsers = []*regexp.Regexp{
		re(`\b(who\s+are\s+the\s+users|list\s+(all\s+)?users|show\s+(all\s+)?users|user\s+list|all\s+users|all\s+members)\b`),
		re(`\b(list|show|get|fetch|display)\s+(all\s+)?(users?|members?|accounts?|customers?)\b`),
	}

	reviewsFor   = re(`\b(?:reviews?\s+(?:for|of|about|on)|(?:feedback|ratings?)\s+(?:for|of|about|on))\s+(.+?)$`)
	countReviews = []*regexp.Regexp{
		re(`\b(how\s+many|count|number\s+of|total)\s+(reviews?|ratings?|feedback)\b`),
		re(`\b(reviews?|ratings?|feedback)\s+(count|total|number)\b`),
	}
	listReviews = []*regexp.Regexp{
		re(`\b(list|show|get|fetch|display|all|latest|recent)\s+(all\s+)?(reviews?|ratings?|feedback)\b`),
		re(`\b(reviews?|ratings?|feedback)\s+(list|all)\b`),
	}

	bookingStatusForward = re(`\b(pending|confirmed|in.?progress|completed|cancelled|canceled)\s+(bookings?|reservations?|orders?)\b`)
	bookingStatusReverse = re(`\b(bookings?|reservations?|orders?)\s+(?:that\s+are\s+|with\s+status\s+)?(pending|confirmed|in.?progress|completed|cancelled|canceled)\b`)
	countBookings        = []*regexp.Regexp{
		re(`\b(how\s+many|count|number\s+of|total)\s+(bookings?|reservations?|orders?|rentals?)\b`),
		re(`\b(bookings?|reservations?|orders?|rentals?)\s+(count|total|number)\b`),
	}
	listBookings = []*regexp.Regexp{
		re(`\b(list|show|get|fetch|display|all|latest|recent)\s+(all\s+)?(bookings?|reservations?|orders?|rentals?)\b`),
		re(`\b(bookings?|reservations?|orders?|rentals?)\s+(list|all)\b`),
	}

	upcomingBookings = re(`\b(upcoming|next|future|scheduled)\s+(bookings?|rentals?|reservations?)\b`)
	calendarOf       = re(`\b(?:availability|calendar|schedule|booked\s+dates)\s+(?:of|for)\s+(?:the\s+)?(.+?)$`)
	isAvailable      = re(`\bis\s+(?:the\s+)?(.+?)\s+(?:available|free|booked)\b`)
	genericThing     = re(`^(it|this|that|anything|something|everything|there|equipment|machinery|machines|anyone|someone)$`)
	labourWord       = re(`\b(labou?rs?|labou?rers?|workers?)\b`)
	calendarWord     = re(`\b(availability|calendar|schedule)\b`)
)

func anyMatch(msg string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// simple matches kind when any pattern matches.
func simple(name string, kind Kind, patterns []*regexp.Regexp) rule {
	return rule{name: name, match: func(msg string) (Intent, bool) {
		if anyMatch(msg, patterns) {
			return Intent{Kind: kind}, true
		}
		return Intent{}, false
	}}
}

// personal matches kind when the message says "my"/"mine" and any of words.
func personal(name string, kind Kind, words *regexp.Regexp) rule {
	return rule{name: name, match: func(msg string) (Intent, bool) {
		if myWord.MatchString(msg) && words.MatchString(msg) {
			return Intent{Kind: kind}, true
		}
		return Intent{}, false
	}}
}

// NormalizeStatus maps a matched status token onto the stored enum value.
func NormalizeStatus(s string) string {
	s = strings.Replace(s, "canceled", "cancelled", 1)
	if inProgressWord.MatchString(s) {
		return "in_progress"
	}
	return whitespace.ReplaceAllString(s, "_")
}

type categoryPatterns struct {
	category string
	count    []*regexp.Regexp
	list     []*regexp.Regexp
}

var categoryMatchers = buildCategoryMatchers()

func buildCategoryMatchers() []categoryPatterns {
	out := make([]categoryPatterns, 0, len(Categories))
	for _, c := range Categories {
		tokens := regexp.QuoteMeta(c) + "|" + regexp.QuoteMeta(Plural(c))
		out = append(out, categoryPatterns{
			category: c,
			count: []*regexp.Regexp{
				re(`\b(how\s+many|count|number\s+of|total)\s+(` + tokens + `)\b`),
				re(`\b(` + tokens + `)\s+(count|total|number)\b`),
			},
			list: []*regexp.Regexp{
				re(`\b(list|show|get|fetch|display|all|what are the)\s+(all\s+)?(` + tokens + `)\b`),
				re(`\b(` + tokens + `)\s+(list|available)\b`),
			},
		})
	}
	return out
}

func cascade() []rule {
	return []rule{
		simple("platform_stats", PlatformStats, platformStatsPatterns),

		{name: "my_booking_status", match: func(msg string) (Intent, bool) {
			if !myWord.MatchString(msg) || !myBookingWord.MatchString(msg) {
				return Intent{}, false
			}
			m := statusWord.FindStringSubmatch(msg)
			if m == nil {
				return Intent{}, false
			}
			return Intent{Kind: MyBookingStatus, Status: NormalizeStatus(m[1])}, true
		}},
		{name: "my_upcoming_bookings", match: func(msg string) (Intent, bool) {
			if myWord.MatchString(msg) && myBookingWord.MatchString(msg) && upcomingWord.MatchString(msg) {
				return Intent{Kind: MyUpcomingBookings}, true
			}
			return Intent{}, false
		}},
		personal("my_bookings", MyBookings, myBookingWord),
		personal("my_payments", MyPayments, paymentWord),
		personal("my_messages", MyMessages, messageWord),
		personal("my_equipment", MyEquipment, myEquipWord),
		personal("my_profile", MyProfile, myProfileWord),
		personal("my_reviews", MyReviews, myReviewWord),

		{name: "analytics", match: func(msg string) (Intent, bool) {
			if !analyticsWord.MatchString(msg) {
				return Intent{}, false
			}
			switch {
			case mostRentedWord.MatchString(msg):
				return Intent{Kind: AnalyticsMostRented}, true
			case revenueWord.MatchString(msg):
				return Intent{Kind: AnalyticsRevenue}, true
			case idleWord.MatchString(msg):
				return Intent{Kind: AnalyticsIdle}, true
			default:
				return Intent{Kind: AnalyticsOverview}, true
			}
		}},

		{name: "count_equipment_category", match: func(msg string) (Intent, bool) {
			for _, cp := range categoryMatchers {
				if anyMatch(msg, cp.count) {
					return Intent{Kind: CountEquipmentCategory, Category: cp.category}, true
				}
			}
			return Intent{}, false
		}},
		{name: "list_equipment_category", match: func(msg string) (Intent, bool) {
			for _, cp := range categoryMatchers {
				if anyMatch(msg, cp.list) {
					return Intent{Kind: ListEquipmentCategory, Category: cp.category}, true
				}
			}
			return Intent{}, false
		}},

		{name: "count_equipment", match: func(msg string) (Intent, bool) {
			if !anyMatch(msg, countEquipment) {
				return Intent{}, false
			}
			if availableWord.MatchString(msg) && detailWord.MatchString(msg) {
				return Intent{Kind: AvailableEquipment}, true
			}
			return Intent{Kind: CountEquipment}, true
		}},
		simple("list_equipment", ListEquipment, listEquipment),
		simple("available_equipment", AvailableEquipment, availableEquipment),

		{name: "search_equipment", match: func(msg string) (Intent, bool) {
			m := searchEquipment.FindStringSubmatch(msg)
			if m == nil {
				return Intent{}, false
			}
			term := strings.TrimSpace(m[1])
			if term == "" || otherEntity.MatchString(term) {
				return Intent{}, false
			}
			return Intent{Kind: SearchEquipment, SearchTerm: term}, true
		}},

		{name: "search_labour", match: func(msg string) (Intent, bool) {
			for _, p := range labourSkillPatterns {
				m := p.FindStringSubmatch(msg)
				if m == nil {
					continue
				}
				term := strings.TrimSpace(m[1])
				if term == "" || genericSkill.MatchString(term) || labourWord.MatchString(term) {
					continue
				}
				return Intent{Kind: SearchLabour, SearchTerm: term}, true
			}
			return Intent{}, false
		}},

		{name: "count_labour", match: func(msg string) (Intent, bool) {
			if !anyMatch(msg, countLabour) {
				return Intent{}, false
			}
			if availableWord.MatchString(msg) && detailWord.MatchString(msg) {
				return Intent{Kind: AvailableLabour}, true
			}
			return Intent{Kind: CountLabour}, true
		}},
		simple("available_labour", AvailableLabour, availableLabour),
		simple("list_labour", ListLabour, listLabour),

		simple("count_providers", CountProviders, countProviders),
		simple("list_providers", ListProviders, listProviders),

		simple("count_users", CountUsers, countUsers),
		simple("list_users", ListUsers, listUsers),

		{name: "reviews_for_equipment", match: func(msg string) (Intent, bool) {
			m := reviewsFor.FindStringSubmatch(msg)
			if m == nil {
				return Intent{}, false
			}
			name := strings.TrimSpace(m[1])
			if name == "" {
				return Intent{}, false
			}
			return Intent{Kind: ReviewsForEquipment, EquipmentName: name}, true
		}},
		simple("count_reviews", CountReviews, countReviews),
		simple("list_reviews", ListReviews, listReviews),

		{name: "booking_status", match: func(msg string) (Intent, bool) {
			if m := bookingStatusForward.FindStringSubmatch(msg); m != nil {
				return Intent{Kind: BookingStatus, Status: NormalizeStatus(m[1])}, true
			}
			if m := bookingStatusReverse.FindStringSubmatch(msg); m != nil {
				return Intent{Kind: BookingStatus, Status: NormalizeStatus(m[2])}, true
			}
			return Intent{}, false
		}},
		simple("count_bookings", CountBookings, countBookings),
		simple("list_bookings", ListBookings, listBookings),

		simple("payments", MyPayments, []*regexp.Regexp{paymentWord}),
		simple("upcoming_bookings", MyUpcomingBookings, []*regexp.Regexp{upcomingBookings}),
		{name: "equipment_availability", match: func(msg string) (Intent, bool) {
			for _, p := range []*regexp.Regexp{calendarOf, isAvailable} {
				m := p.FindStringSubmatch(msg)
				if m == nil {
					continue
				}
				name := strings.TrimSpace(m[1])
				if name == "" || genericThing.MatchString(name) || labourWord.MatchString(name) {
					continue
				}
				return Intent{Kind: EquipmentAvailability, EquipmentName: name}, true
			}
			return Intent{}, false
		}},
		{name: "labour_availability", match: func(msg string) (Intent, bool) {
			if labourWord.MatchString(msg) && calendarWord.MatchString(msg) {
				return Intent{Kind: LabourAvailability}, true
			}
			return Intent{}, false
		}},
		simple("messages", MyMessages, []*regexp.Regexp{messageWord}),
	}
}
