package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"noticeboard/internal/model"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

type CategoryRule struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

type TagRule struct {
	Tag      string   `mapstructure:"tag"`
	Keywords []string `mapstructure:"keywords"`
}

// Rules drive the keyword classifier. Keywords match whole words and may
// span several words ("last date").
type Rules struct {
	Categories       []CategoryRule `mapstructure:"categories"`
	HighImportance   []string       `mapstructure:"high_importance"`
	MediumImportance []string       `mapstructure:"medium_importance"`
	Tags             []TagRule      `mapstructure:"tags"`
}

func DefaultRules() Rules {
	return Rules{
		Categories: []CategoryRule{
			{Name: CategoryDeadline, Keywords: []string{"deadline", "due", "last date", "submit", "submission", "extended", "closes"}},
			{Name: CategoryEvent, Keywords: []string{"event", "workshop", "seminar", "fest", "hackathon", "webinar", "competition", "talk", "meetup", "celebration"}},
			{Name: CategoryAcademic, Keywords: []string{"exam", "midterm", "lecture", "class", "syllabus", "assignment", "course", "semester", "timetable", "result", "quiz", "lab"}},
			{Name: CategoryOpportunity, Keywords: []string{"internship", "placement", "job", "scholarship", "recruitment", "opening", "hiring", "fellowship"}},
		},
		HighImportance:   []string{"urgent", "important", "mandatory", "immediately", "asap", "compulsory", "cancelled", "last date"},
		MediumImportance: []string{"reminder", "please note", "required", "update", "rescheduled", "registration"},
		Tags: []TagRule{
			{Tag: "CSE", Keywords: []string{"cse", "computer science"}},
			{Tag: "ECE", Keywords: []string{"ece", "electronics"}},
			{Tag: "MECH", Keywords: []string{"mech", "mechanical"}},
			{Tag: "CIVIL", Keywords: []string{"civil"}},
			{Tag: "exam", Keywords: []string{"exam", "exams", "midterm", "quiz"}},
			{Tag: "placement", Keywords: []string{"placement", "placements", "recruitment"}},
			{Tag: "internship", Keywords: []string{"internship", "internships"}},
			{Tag: "hackathon", Keywords: []string{"hackathon"}},
			{Tag: "scholarship", Keywords: []string{"scholarship", "scholarships"}},
		},
	}
}

// Classifier is a deterministic keyword classifier.
type Classifier struct {
	categories []compiledRule
	high       []string
	medium     []string
	tags       []compiledRule
}

type compiledRule struct {
	label    string
	keywords []string
}

func NewClassifier(rules Rules) (*Classifier, error) {
	c := &Classifier{
		high:   normalizeKeywords(rules.HighImportance),
		medium: normalizeKeywords(rules.MediumImportance),
	}

	for _, rule := range rules.Categories {
		name := strings.TrimSpace(rule.Name)
		if !validCategory(name) || name == CategoryOther {
			return nil, fmt.Errorf("invalid category rule %q", rule.Name)
		}
		c.categories = append(c.categories, compiledRule{label: name, keywords: normalizeKeywords(rule.Keywords)})
	}
	for _, rule := range rules.Tags {
		tag := strings.TrimSpace(rule.Tag)
		if tag == "" {
			return nil, fmt.Errorf("tag rule with keywords %v has no tag", rule.Keywords)
		}
		c.tags = append(c.tags, compiledRule{label: tag, keywords: normalizeKeywords(rule.Keywords)})
	}

	return c, nil
}

// Classify never returns a nil Tags slice. The category with the most keyword
// hits wins; ties go to the earlier rule.
func (c *Classifier) Classify(title, content string) (model.Analysis, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return model.Analysis{}, ErrMissingFields
	}

	text := normalizeText(title + " " + content)

	category := CategoryOther
	best := 0
	for _, rule := range c.categories {
		if hits := countHits(text, rule.keywords); hits > best {
			best = hits
			category = rule.label
		}
	}

	importance := ImportanceLow
	switch {
	case countHits(text, c.high) > 0:
		importance = ImportanceHigh
	case countHits(text, c.medium) > 0, category == CategoryDeadline:
		importance = ImportanceMedium
	}

	tags := make([]string, 0, len(c.tags))
	for _, rule := range c.tags {
		if countHits(text, rule.keywords) > 0 {
			tags = append(tags, rule.label)
		}
	}

	return model.Analysis{Category: category, Importance: importance, Tags: tags}, nil
}

func validCategory(name string) bool {
	switch name {
	case CategoryAcademic, CategoryEvent, CategoryDeadline, CategoryOpportunity, CategoryOther:
		return true
	default:
		return false
	}
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			hits++
		}
	}
	return hits
}

// normalizeText lower-cases and re-joins words with single spaces, padded so
// that " word " matches only whole words.
func normalizeText(value string) string {
	words := wordPattern.FindAllString(strings.ToLower(value), -1)
	return " " + strings.Join(words, " ") + " "
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		normalized := normalizeText(keyword)
		if strings.TrimSpace(normalized) == "" {
			continue
		}
		out = append(out, normalized)
	}
	return out
}
