package classify

import (
	"strings"
	"testing"
)

func TestClassifyAutoSubcategory(t *testing.T) {
	hierarchy := []Category{{Name: "Movies", Price: 2, AutoSub: true}}

	res := Classify("/lib/Movies/Action/The.Matrix.1999.1080p.x264.mkv", hierarchy)

	if res.Title != "The Matrix 1999" {
		t.Errorf("Title = %q, want %q", res.Title, "The Matrix 1999")
	}
	if res.Category != "Action" {
		t.Errorf("Category = %q, want %q", res.Category, "Action")
	}
	if res.ParentCategory != "Movies" {
		t.Errorf("ParentCategory = %q, want %q", res.ParentCategory, "Movies")
	}
	if res.Collection != "" {
		t.Errorf("Collection = %q, want empty", res.Collection)
	}
}

func TestClassifyAutoSubCollection(t *testing.T) {
	hierarchy := []Category{{Name: "Series", AutoSub: true}}

	res := Classify("/lib/Series/Drama/Breaking_Bad/s01e01.mkv", hierarchy)

	if res.ParentCategory != "Series" {
		t.Errorf("ParentCategory = %q, want Series", res.ParentCategory)
	}
	if res.Collection != "Drama" {
		t.Errorf("Collection = %q, want Drama", res.Collection)
	}
	if res.Category != "Breaking_Bad" {
		t.Errorf("Category = %q, want Breaking_Bad", res.Category)
	}
}

func TestClassifyExactCategory(t *testing.T) {
	hierarchy := []Category{{Name: "Documentaries"}}

	res := Classify("/lib/documentaries/planet.earth.mp4", hierarchy)

	// Case-insensitive match resolves to the configured name.
	if res.Category != "Documentaries" {
		t.Errorf("Category = %q, want Documentaries", res.Category)
	}
	if res.ParentCategory != "" {
		t.Errorf("ParentCategory = %q, want empty", res.ParentCategory)
	}
}

func TestClassifyUnmatched(t *testing.T) {
	res := Classify("/somewhere/else/video.mp4", []Category{{Name: "Movies"}})

	if res.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", res.Category, DefaultCategory)
	}
	if res.ParentCategory != "" || res.Collection != "" {
		t.Error("unmatched path must not set parent or collection")
	}
}

func TestClassifyDeepestMatchWins(t *testing.T) {
	hierarchy := []Category{{Name: "Movies"}, {Name: "Classics"}}

	res := Classify("/lib/Movies/Classics/casablanca.mp4", hierarchy)

	if res.Category != "Classics" {
		t.Errorf("Category = %q, want Classics (deepest match)", res.Category)
	}
}

func TestClassifyAutoSubWithoutDeeperSegment(t *testing.T) {
	hierarchy := []Category{{Name: "Movies", AutoSub: true}}

	// File sits directly in the matched directory; no subcategory exists.
	res := Classify("/lib/Movies/heat.mp4", hierarchy)

	if res.Category != "Movies" {
		t.Errorf("Category = %q, want Movies", res.Category)
	}
	if res.ParentCategory != "" {
		t.Errorf("ParentCategory = %q, want empty", res.ParentCategory)
	}
}

func TestDeriveTitleJunkTokens(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/l/Some.Film.720p.BluRay.x264.mkv", "Some Film"},
		{"/l/other_film_4k.mp4", "Other Film"},
		{"/l/WEB-DL.sample.h264.avi", "Sample"},
		{"/l/plain title.mp4", "Plain Title"},
		{"/l/UPPER.CASE.NAME.mkv", "Upper Case Name"},
	}

	for _, tt := range tests {
		if got := Classify(tt.path, nil).Title; got != tt.want {
			t.Errorf("Classify(%q).Title = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestClassifyTruncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	res := Classify("/lib/"+long+"/"+long+".mp4", []Category{{Name: long, AutoSub: false}})

	if len(res.Title) > 250 {
		t.Errorf("Title length = %d, want <= 250", len(res.Title))
	}
	if len(res.Category) > 95 {
		t.Errorf("Category length = %d, want <= 95", len(res.Category))
	}
}

func TestClassifyWindowsSeparators(t *testing.T) {
	hierarchy := []Category{{Name: "Movies", AutoSub: true}}

	res := Classify(`C:\lib\Movies\Action\film.mkv`, hierarchy)

	if res.Category != "Action" || res.ParentCategory != "Movies" {
		t.Errorf("got %+v, want Action under Movies", res)
	}
}

func TestResolvePrice(t *testing.T) {
	hierarchy := []Category{
		{Name: "Movies", Price: 2},
		{Name: "Premium", Price: 5.5},
	}

	tests := []struct {
		name     string
		category string
		parent   string
		want     float64
	}{
		{"exact match", "Movies", "", 2},
		{"case-insensitive match", "movies", "", 2},
		{"parent fallback", "Horror", "Movies", 2},
		{"parent case-insensitive", "Horror", "premium", 5.5},
		{"no match no parent", "Unknown", "", DefaultPrice},
		{"unknown parent", "Unknown", "Nope", DefaultPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePrice(tt.category, hierarchy, tt.parent); got != tt.want {
				t.Errorf("ResolvePrice(%q, _, %q) = %v, want %v", tt.category, tt.parent, got, tt.want)
			}
		})
	}
}

func TestResolvePriceEmptyHierarchy(t *testing.T) {
	if got := ResolvePrice("Unknown", nil, ""); got != 1.00 {
		t.Errorf("ResolvePrice on empty hierarchy = %v, want 1.00", got)
	}
}
