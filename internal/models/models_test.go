package models

import (
	"errors"
	"strings"
	"testing"
)

func TestNewActivityValidation(t *testing.T) {
	ref := "  tournament-7  "
	a, err := NewActivity(NewActivityParams{
		UserID:       1,
		UserName:     " alice ",
		ActivityType: ActivityTeamJoin,
		Title:        " Joined a team ",
		ReferenceID:  &ref,
		IsPublic:     true,
	})
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}
	if a.Title != "Joined a team" || a.UserName != "alice" {
		t.Errorf("expected trimmed fields, got %q / %q", a.Title, a.UserName)
	}
	if a.ReferenceID == nil || *a.ReferenceID != "tournament-7" {
		t.Errorf("expected trimmed reference, got %v", a.ReferenceID)
	}

	cases := []struct {
		name   string
		params NewActivityParams
	}{
		{"missing user", NewActivityParams{ActivityType: ActivityComment, Title: "x"}},
		{"unknown type", NewActivityParams{UserID: 1, ActivityType: "dance_party", Title: "x"}},
		{"empty title", NewActivityParams{UserID: 1, ActivityType: ActivityComment, Title: "   "}},
		{"long title", NewActivityParams{UserID: 1, ActivityType: ActivityComment, Title: strings.Repeat("a", 201)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewActivity(tc.params)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBlankReferenceBecomesNil(t *testing.T) {
	blank := "   "
	a, err := NewActivity(NewActivityParams{UserID: 1, ActivityType: ActivityComment, Title: "hi", ReferenceID: &blank})
	if err != nil {
		t.Fatalf("NewActivity failed: %v", err)
	}
	if a.ReferenceID != nil {
		t.Errorf("expected nil reference, got %q", *a.ReferenceID)
	}
}

func TestNewCoinTransactionValidation(t *testing.T) {
	if _, err := NewCoinTransaction(1, 5, TransactionDailyLogin, "bonus", nil); err != nil {
		t.Fatalf("expected valid transaction, got %v", err)
	}
	if _, err := NewCoinTransaction(1, 0, TransactionDailyLogin, "zero", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero amount, got %v", err)
	}
	if _, err := NewCoinTransaction(1, 5, "free_money", "nope", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestEnumValidity(t *testing.T) {
	for _, at := range ActivityTypes {
		if !at.Valid() {
			t.Errorf("%s should be valid", at)
		}
	}
	if ActivityType("").Valid() {
		t.Error("empty activity type should be invalid")
	}
	if !TransactionActivityEngagement.Valid() || TransactionType("x").Valid() {
		t.Error("transaction type validity mismatch")
	}
}
