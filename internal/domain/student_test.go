package domain

import "testing"

func TestNormalizeStudent(t *testing.T) {
	raw := &StudentRecord{
		Href:        "/student-detail/hoshino_swimsuit",
		EnglishName: "  hoshino_swimsuit ",
		KoreanName:  "호시노_수영복",
	}

	s := NormalizeStudent(raw)
	if s == nil {
		t.Fatal("expected normalized record, got nil")
	}
	if s.EnglishName != "hoshino_swimsuit" {
		t.Errorf("EnglishName = %q", s.EnglishName)
	}
	if s.BaseEnglishName != "hoshino" {
		t.Errorf("BaseEnglishName = %q, want hoshino", s.BaseEnglishName)
	}
	if s.VariantKey != "swimsuit" {
		t.Errorf("VariantKey = %q, want swimsuit", s.VariantKey)
	}
	if s.BaseKoreanName != "호시노" {
		t.Errorf("BaseKoreanName = %q, want 호시노", s.BaseKoreanName)
	}
	if s.WikiSearchName != "hoshino swimsuit" {
		t.Errorf("WikiSearchName = %q, want %q", s.WikiSearchName, "hoshino swimsuit")
	}
	if s.SearchText == "" {
		t.Error("SearchText not populated")
	}
}

func TestNormalizeStudentDropsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  *StudentRecord
	}{
		{"nil", nil},
		{"no href", &StudentRecord{EnglishName: "hoshino"}},
		{"no names", &StudentRecord{Href: "/student-detail/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStudent(tt.raw); got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

func TestCacheKeyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		s    StudentRecord
		want string
	}{
		{"href wins", StudentRecord{Href: "/student-detail/aru", EnglishName: "aru", KoreanName: "아루"}, "/student-detail/aru"},
		{"english next", StudentRecord{EnglishName: "aru", KoreanName: "아루"}, "aru"},
		{"korean last", StudentRecord{KoreanName: "아루"}, "아루"},
	}
	for _, tt := range tests {
		if got := tt.s.CacheKey(); got != tt.want {
			t.Errorf("%s: CacheKey = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseStudentPayload(t *testing.T) {
	envelope := []byte(`{"updatedAt":1,"students":[{"href":"/student-detail/aru","englishName":"aru"}]}`)
	if got := ParseStudentPayload(envelope); len(got) != 1 || got[0].EnglishName != "aru" {
		t.Errorf("envelope parse failed: %+v", got)
	}

	bare := []byte(`[{"href":"/student-detail/aru","koreanName":"아루"}]`)
	if got := ParseStudentPayload(bare); len(got) != 1 || got[0].KoreanName != "아루" {
		t.Errorf("bare array parse failed: %+v", got)
	}

	if got := ParseStudentPayload([]byte("not json")); got != nil {
		t.Errorf("corrupt payload should yield nil, got %+v", got)
	}
	if got := ParseStudentPayload(nil); got != nil {
		t.Errorf("empty payload should yield nil, got %+v", got)
	}
}

func TestLoadBundledStudents(t *testing.T) {
	students := LoadBundledStudents()
	if len(students) == 0 {
		t.Fatal("bundled dataset is empty")
	}

	seen := make(map[string]struct{}, len(students))
	for _, s := range students {
		if s.Href == "" {
			t.Errorf("student %q has no href", s.DisplayName())
		}
		if _, dup := seen[s.Href]; dup {
			t.Errorf("duplicate href %q", s.Href)
		}
		seen[s.Href] = struct{}{}
		if s.WikiSearchName == "" {
			t.Errorf("student %q has no wiki search name", s.DisplayName())
		}
	}
}
