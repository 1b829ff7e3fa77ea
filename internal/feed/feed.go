// Package feed turns notice snapshots into display-ready cards. It holds no
// state; every snapshot produces a complete replacement.
package feed

import (
	"sort"
	"strings"
	"time"

	"noticeboard/internal/model"
)

const (
	PlaceholderEmpty = "No notices yet"
	PlaceholderError = "Error loading notices"
	UnknownDate      = "Unknown"

	DefaultDateLayout = "Jan 2, 2006"
)

type BadgeKind string

const (
	BadgeCategory   BadgeKind = "category"
	BadgeImportance BadgeKind = "importance"
	BadgeTag        BadgeKind = "tag"
)

type Badge struct {
	Kind BadgeKind
	Text string
}

type Card struct {
	Title   string
	Content string
	Badges  []Badge
	Author  string
	Date    string
}

// Feed is either a placeholder or a list of cards, never both.
type Feed struct {
	Placeholder string
	Cards       []Card
}

func (f Feed) Empty() bool {
	return len(f.Cards) == 0
}

type Options struct {
	DateLayout string
	Location   *time.Location
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.DateLayout) == "" {
		o.DateLayout = DefaultDateLayout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Build renders a snapshot newest first. Notices without a timestamp sort
// last and show UnknownDate.
func Build(notices []model.Notice, opts Options) Feed {
	if len(notices) == 0 {
		return Feed{Placeholder: PlaceholderEmpty}
	}
	opts = opts.withDefaults()

	ordered := make([]model.Notice, len(notices))
	copy(ordered, notices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return newer(ordered[i].Timestamp, ordered[j].Timestamp)
	})

	cards := make([]Card, 0, len(ordered))
	for _, notice := range ordered {
		cards = append(cards, buildCard(notice, opts))
	}
	return Feed{Cards: cards}
}

func Failed() Feed {
	return Feed{Placeholder: PlaceholderError}
}

func buildCard(notice model.Notice, opts Options) Card {
	badges := make([]Badge, 0, len(notice.Tags)+2)
	badges = append(badges,
		Badge{Kind: BadgeCategory, Text: notice.Category},
		Badge{Kind: BadgeImportance, Text: notice.Importance},
	)
	for _, tag := range notice.Tags {
		badges = append(badges, Badge{Kind: BadgeTag, Text: tag})
	}

	date := UnknownDate
	if notice.Timestamp != nil && !notice.Timestamp.IsZero() {
		date = notice.Timestamp.In(opts.Location).Format(opts.DateLayout)
	}

	return Card{
		Title:   notice.Title,
		Content: notice.Content,
		Badges:  badges,
		Author:  notice.CreatedByEmail,
		Date:    date,
	}
}

func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

// Preview is the analysis summary shown while a notice is being posted.
type Preview struct {
	Category   string
	Importance string
	Tags       string
}

func NewPreview(analysis model.Analysis) Preview {
	return Preview{
		Category:   analysis.Category,
		Importance: analysis.Importance,
		Tags:       strings.Join(analysis.Tags, ", "),
	}
}
