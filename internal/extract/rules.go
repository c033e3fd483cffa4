package extract

// keywordRule maps a field value to the keywords that indicate it.
// Tables are ordered; the first rule whose keyword appears wins, so
// new heuristics can be added without touching the control flow.
type keywordRule struct {
	value    string
	keywords []string
}

var industryRules = []keywordRule{
	{"Restaurant", []string{"restaurant", "dining", "cuisine", "menu", "bistro", "cafe"}},
	{"Bakery", []string{"bakery", "artisan bread", "pastries", "patisserie"}},
	{"Tech Company", []string{"software", "technology", "saas", "app", "digital", "tech"}},
	{"Retail Store", []string{"shop", "store", "retail", "merchandise", "boutique"}},
	{"Healthcare", []string{"health", "medical", "doctor", "clinic", "hospital", "dental"}},
	{"Education", []string{"education", "school", "training", "course", "tutoring"}},
	{"Service Provider", []string{"service", "consulting", "solution", "professional", "agency"}},
}

var audienceRules = []keywordRule{
	{"Small business owners", []string{"small business", "entrepreneur", "startup"}},
	{"Professionals", []string{"professional", "corporate", "business executive"}},
	{"Families", []string{"family", "families", "parents", "children", "kids"}},
	{"Young adults", []string{"millennial", "young adult", "college", "student"}},
	{"Seniors", []string{"senior", "retirement", "elderly", "mature"}},
}

var toneRules = []keywordRule{
	{"Friendly", []string{"friendly", "welcoming", "family-owned", "cozy", "neighborhood"}},
	{"Professional", []string{"trusted", "expertise", "certified", "professional", "reliable"}},
	{"Playful", []string{"fun", "playful", "quirky", "vibrant"}},
	{"Luxury", []string{"luxury", "premium", "exclusive", "bespoke", "handcrafted"}},
}

// matchRule returns the first rule value whose keyword occurs in text.
func matchRule(rules []keywordRule, text string) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if containsWord(text, kw) {
				return r.value
			}
		}
	}
	return ""
}

// sectionLabels mark headings whose section text counts as clearly
// labeled, upgrading keyword matches to high confidence.
var sectionLabels = []string{"about", "who we are", "our story", "service", "product", "what we do"}

// offerLabels mark headings that introduce the products/services section.
var offerLabels = []string{"service", "product", "offering", "solution", "menu", "what we do"}
