package wildtag

import (
	"errors"
	"reflect"
	"testing"
)

func TestCategoryMap_Match(t *testing.T) {
	t.Parallel()

	animals := DefaultAnimalCategories()
	tests := []struct {
		label string
		want  []string
	}{
		{"African_elephant", []string{"elephant"}},
		{"TUSKER", []string{"elephant"}},
		{"lion", []string{"lion"}},
		{"lion_cub", []string{"lion", "lion_cub"}},
		{"hippopotamus", []string{"hippopotamus"}},
		{"tabby", nil},
		{"", nil},
	}

	for _, tt := range tests {
		if got := animals.Match(tt.label); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Match(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestCategoryMap_EmptyKeywordNeverMatches(t *testing.T) {
	t.Parallel()
	m := CategoryMap{{Name: "blank", Keywords: []string{""}}}
	if got := m.Match("anything"); got != nil {
		t.Errorf("Match() = %v, want nil", got)
	}
}

func TestCategoryMap_Names(t *testing.T) {
	t.Parallel()
	names := DefaultLandscapeCategories().Names()
	if len(names) != 9 || names[0] != "river" || names[8] != "valley" {
		t.Errorf("Names() = %v", names)
	}
}

func TestCategoryMap_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		m       CategoryMap
		wantErr bool
	}{
		{"defaults animals", DefaultAnimalCategories(), false},
		{"defaults landscapes", DefaultLandscapeCategories(), false},
		{"empty map", nil, false},
		{"empty name", CategoryMap{{Name: " ", Keywords: []string{"x"}}}, true},
		{"duplicate", CategoryMap{{Name: "a", Keywords: []string{"x"}}, {Name: "a", Keywords: []string{"y"}}}, true},
		{"no keywords", CategoryMap{{Name: "a"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	err := CategoryMap{{Name: "a"}}.Validate()
	if !errors.Is(err, errNoKeywords) {
		t.Errorf("Validate() error = %v, want errNoKeywords", err)
	}
}
