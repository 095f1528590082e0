package core

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestAudioFeatures_Value(t *testing.T) {
	features := &AudioFeatures{
		Energy:   ptr(0.8),
		Loudness: ptr(-7.5),
		Tempo:    ptr(128.0),
	}

	tests := []struct {
		name     string
		features *AudioFeatures
		feature  Feature
		expected float64
		present  bool
	}{
		{name: "Present ratio feature", features: features, feature: FeatureEnergy, expected: 0.8, present: true},
		{name: "Present loudness", features: features, feature: FeatureLoudness, expected: -7.5, present: true},
		{name: "Present tempo", features: features, feature: FeatureTempo, expected: 128, present: true},
		{name: "Omitted by the API", features: features, feature: FeatureValence, present: false},
		{name: "Unknown feature", features: features, feature: Feature("groove"), present: false},
		{name: "Nil features", features: nil, feature: FeatureEnergy, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := tt.features.Value(tt.feature)
			if ok != tt.present {
				t.Fatalf("Value(%s) present = %v, expected %v", tt.feature, ok, tt.present)
			}
			if ok && value != tt.expected {
				t.Errorf("Value(%s) = %v, expected %v", tt.feature, value, tt.expected)
			}
		})
	}
}

func TestFeature_Bounds(t *testing.T) {
	for _, f := range Features {
		lo, hi, ok := f.Bounds()
		if !ok {
			t.Errorf("Feature %s should have bounds", f)
		}
		if lo >= hi {
			t.Errorf("Feature %s has empty bounds [%v, %v]", f, lo, hi)
		}
	}

	if _, _, ok := Feature("mood").Bounds(); ok {
		t.Error("Unknown feature should not have bounds")
	}
}

func TestTrack_WithFeatures(t *testing.T) {
	original := Track{ID: "t1", Name: "Song"}
	enriched := original.WithFeatures(AudioFeatures{Valence: ptr(0.3)})

	if original.Features != nil {
		t.Error("WithFeatures should not modify the receiver")
	}
	if v, ok := enriched.Features.Value(FeatureValence); !ok || v != 0.3 {
		t.Errorf("Enriched track valence = %v (present %v), expected 0.3", v, ok)
	}
}

func TestTrack_String(t *testing.T) {
	track := Track{Name: "Song", Artists: []Artist{{Name: "Band"}, {Name: "Guest"}}}
	if got := track.String(); got != "Band - Song" {
		t.Errorf("String() = %q, expected %q", got, "Band - Song")
	}

	if got := (Track{Name: "Lonely"}).String(); got != "Lonely" {
		t.Errorf("String() without artists = %q, expected %q", got, "Lonely")
	}
}

func TestTimeRange_Valid(t *testing.T) {
	for _, tr := range []TimeRange{ShortTerm, MediumTerm, LongTerm} {
		if !tr.Valid() {
			t.Errorf("%s should be valid", tr)
		}
	}
	if TimeRange("yesterday").Valid() {
		t.Error("Unknown time range should be invalid")
	}
}

func TestReleaseRange_Contains(t *testing.T) {
	r := ReleaseRange{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		date     time.Time
		expected bool
	}{
		{"Start bound is inclusive", r.Start, true},
		{"End bound is inclusive", r.End, true},
		{"Inside", time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"Before", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"After", time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.date); got != tt.expected {
				t.Errorf("Contains(%v) = %v, expected %v", tt.date, got, tt.expected)
			}
		})
	}
}
