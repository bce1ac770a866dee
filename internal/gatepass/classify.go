package gatepass

import "strings"

// Category buckets a stated reason into a gate policy class.
type Category string

const (
	CategoryMedical   Category = "MEDICAL"
	CategoryAcademic  Category = "ACADEMIC"
	CategoryHome      Category = "HOME"
	CategoryPersonal  Category = "PERSONAL"
	CategoryEmergency Category = "EMERGENCY"
	CategoryOther     Category = "OTHER"
)

// Policy is the classification result: the category and how long the student
// is allowed to stay out.
type Policy struct {
	Category       Category
	AllowedMinutes int
}

// Rule order matters: a reason containing both "medical" and "exam" is
// MEDICAL because that rule comes first.
var classifyRules = []struct {
	substr string
	policy Policy
}{
	{"medical", Policy{CategoryMedical, 180}},
	{"exam", Policy{CategoryAcademic, 240}},
	{"home", Policy{CategoryHome, 300}},
	{"market", Policy{CategoryPersonal, 300}},
	{"emergency", Policy{CategoryEmergency, 240}},
}

// Classify maps a free-text reason to a policy. It always returns a result;
// empty or unrecognized input falls through to OTHER with a 60 minute budget.
func Classify(reason string) Policy {
	r := strings.ToLower(reason)
	for _, rule := range classifyRules {
		if strings.Contains(r, rule.substr) {
			return rule.policy
		}
	}
	return Policy{CategoryOther, 60}
}
