package feed

import (
	"testing"
	"time"

	"noticeboard/internal/model"
)

func TestBuildEmptySnapshotShowsPlaceholderOnly(t *testing.T) {
	t.Parallel()

	for _, snapshot := range [][]model.Notice{nil, {}} {
		got := Build(snapshot, Options{})
		if got.Placeholder != PlaceholderEmpty {
			t.Fatalf("expected placeholder %q, got %q", PlaceholderEmpty, got.Placeholder)
		}
		if len(got.Cards) != 0 {
			t.Fatalf("expected no cards, got %d", len(got.Cards))
		}
	}
}

func TestBuildOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	got := Build([]model.Notice{
		{Title: "undated"},
		{Title: "first", Timestamp: &t1},
		{Title: "second", Timestamp: &t2},
	}, Options{Location: time.UTC})

	if got.Placeholder != "" {
		t.Fatalf("expected no placeholder, got %q", got.Placeholder)
	}
	titles := []string{got.Cards[0].Title, got.Cards[1].Title, got.Cards[2].Title}
	if titles[0] != "second" || titles[1] != "first" || titles[2] != "undated" {
		t.Fatalf("unexpected order %v", titles)
	}
}

func TestBuildCardContents(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	kolkata := time.FixedZone("IST", 5*3600+1800)

	got := Build([]model.Notice{{
		Title:          "Midterm",
		Content:        "Room 204",
		Category:       "Academic",
		Importance:     "high",
		Tags:           []string{"exam", "cs101"},
		CreatedByEmail: "dean@campus.edu",
		Timestamp:      &ts,
	}, {
		Title:      "No date",
		Category:   "Other",
		Importance: "low",
		Tags:       []string{},
	}}, Options{DateLayout: "2006-01-02", Location: kolkata})

	card := got.Cards[0]
	if card.Author != "dean@campus.edu" {
		t.Fatalf("unexpected author %q", card.Author)
	}
	if card.Date != "2026-03-02" {
		t.Fatalf("expected date in configured zone, got %q", card.Date)
	}
	want := []Badge{
		{Kind: BadgeCategory, Text: "Academic"},
		{Kind: BadgeImportance, Text: "high"},
		{Kind: BadgeTag, Text: "exam"},
		{Kind: BadgeTag, Text: "cs101"},
	}
	if len(card.Badges) != len(want) {
		t.Fatalf("expected %d badges, got %d", len(want), len(card.Badges))
	}
	for i := range want {
		if card.Badges[i] != want[i] {
			t.Fatalf("badge %d = %+v, want %+v", i, card.Badges[i], want[i])
		}
	}

	if got.Cards[1].Date != UnknownDate {
		t.Fatalf("expected %q for missing timestamp, got %q", UnknownDate, got.Cards[1].Date)
	}
}

func TestNewPreviewJoinsTags(t *testing.T) {
	t.Parallel()

	preview := NewPreview(model.Analysis{Category: "Academic", Importance: "high", Tags: []string{"exam", "cs101"}})
	if preview.Category != "Academic" || preview.Importance != "high" || preview.Tags != "exam, cs101" {
		t.Fatalf("unexpected preview %+v", preview)
	}
}

func TestFailed(t *testing.T) {
	t.Parallel()

	if got := Failed(); got.Placeholder != PlaceholderError || !got.Empty() {
		t.Fatalf("unexpected failure feed %+v", got)
	}
}
