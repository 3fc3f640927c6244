package pdf

import (
	"errors"
	"testing"
)

func TestPageWindow_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		window      PageWindow
		pages       int
		first, last int
		wantErr     bool
	}{
		{"open", PageWindow{}, 10, 1, 10, false},
		{"start only", PageWindow{Start: 4}, 10, 4, 10, false},
		{"end only", PageWindow{End: 3}, 10, 1, 3, false},
		{"end clamped", PageWindow{Start: 2, End: 99}, 10, 2, 10, false},
		{"single page", PageWindow{Start: 5, End: 5}, 10, 5, 5, false},
		{"start past end", PageWindow{Start: 11}, 10, 0, 0, true},
		{"inverted", PageWindow{Start: 6, End: 2}, 10, 0, 0, true},
		{"no pages", PageWindow{}, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last, err := tt.window.Resolve(tt.pages)
			if tt.wantErr {
				if !errors.Is(err, ErrPageWindow) {
					t.Errorf("Resolve() error = %v, want ErrPageWindow", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if first != tt.first || last != tt.last {
				t.Errorf("Resolve() = %d-%d, want %d-%d", first, last, tt.first, tt.last)
			}
		})
	}
}

func TestTextDocument_PageAt(t *testing.T) {
	doc := &TextDocument{
		Text:        "page two\npage three\n",
		FirstPage:   2,
		LastPage:    3,
		PageOffsets: []int{0, 9},
	}

	cases := map[int]int{0: 2, 8: 2, 9: 3, 19: 3, -1: 0, 100: 0}
	for offset, want := range cases {
		if got := doc.PageAt(offset); got != want {
			t.Errorf("PageAt(%d) = %d, want %d", offset, got, want)
		}
	}
	if doc.PagesRead() != 2 {
		t.Errorf("PagesRead() = %d, want 2", doc.PagesRead())
	}
}

func TestFileResult_SetError(t *testing.T) {
	r := &FileResult{Path: "a.pdf"}
	r.SetError(nil)
	if r.Error != "" || r.Err != nil {
		t.Errorf("SetError(nil) recorded %+v", r)
	}

	r.SetError(ErrNoText)
	if r.Error != ErrNoText.Error() || !errors.Is(r.Err, ErrNoText) {
		t.Errorf("SetError() recorded %+v", r)
	}
}
