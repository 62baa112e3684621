package domain

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
)

// StudentRecord is the canonical in-memory identity for one playable
// character. Raw JSON entries are normalized into this shape exactly
// once, at the load boundary; downstream code never touches raw
// payloads.
type StudentRecord struct {
	Href                string `json:"href"`
	EnglishName         string `json:"englishName,omitempty"`
	KoreanName          string `json:"koreanName,omitempty"`
	BaseEnglishName     string `json:"baseEnglishName,omitempty"`
	BaseKoreanName      string `json:"baseKoreanName,omitempty"`
	VariantKey          string `json:"typeKey,omitempty"`
	EnglishVariantLabel string `json:"englishType,omitempty"`
	KoreanVariantLabel  string `json:"koreanType,omitempty"`
	WikiSearchName      string `json:"wikiSearchName,omitempty"`
	ImageURL            string `json:"imageUrl,omitempty"`

	// SearchText is the precomputed concatenation of all name fields,
	// consumed only by the fuzzy fallback matcher.
	SearchText string `json:"-"`
}

// StudentDataset is the envelope shape shared by the bundled dataset
// and its on-disk cache mirror.
type StudentDataset struct {
	UpdatedAt int64            `json:"updatedAt,omitempty"`
	Source    string           `json:"source,omitempty"`
	Students  []*StudentRecord `json:"students"`
}

//go:embed data/students.json
var bundledStudentsJSON []byte

// DisplayName prefers the English name, falling back to Korean.
func (s *StudentRecord) DisplayName() string {
	if s.EnglishName != "" {
		return s.EnglishName
	}
	return s.KoreanName
}

// CacheKey is the link-cache key: href, else englishName, else
// koreanName.
func (s *StudentRecord) CacheKey() string {
	switch {
	case s.Href != "":
		return s.Href
	case s.EnglishName != "":
		return s.EnglishName
	default:
		return s.KoreanName
	}
}

// NormalizeStudent canonicalizes one raw entry. Returns nil for
// malformed entries (no identifier, or no name at all); callers drop
// those silently.
func NormalizeStudent(raw *StudentRecord) *StudentRecord {
	if raw == nil {
		return nil
	}

	s := &StudentRecord{
		Href:                util.NormalizeWhitespace(raw.Href),
		EnglishName:         util.NormalizeWhitespace(raw.EnglishName),
		KoreanName:          util.NormalizeWhitespace(raw.KoreanName),
		BaseEnglishName:     util.NormalizeWhitespace(raw.BaseEnglishName),
		BaseKoreanName:      util.NormalizeWhitespace(raw.BaseKoreanName),
		VariantKey:          util.NormalizeWhitespace(raw.VariantKey),
		EnglishVariantLabel: util.NormalizeWhitespace(raw.EnglishVariantLabel),
		KoreanVariantLabel:  util.NormalizeWhitespace(raw.KoreanVariantLabel),
		WikiSearchName:      util.NormalizeWhitespace(raw.WikiSearchName),
		ImageURL:            raw.ImageURL,
	}

	if s.Href == "" || (s.EnglishName == "" && s.KoreanName == "") {
		return nil
	}

	if s.WikiSearchName == "" {
		s.WikiSearchName = util.DeSlug(s.EnglishName)
	}
	if s.WikiSearchName == "" {
		s.WikiSearchName = s.KoreanName
	}

	if s.BaseEnglishName == "" && s.EnglishName != "" {
		base, variant := util.SplitBaseAndVariant(util.ToSlug(s.EnglishName))
		s.BaseEnglishName = base
		if s.VariantKey == "" {
			s.VariantKey = variant
		}
	}
	if s.BaseKoreanName == "" && s.KoreanName != "" {
		base, _ := util.SplitBaseAndVariant(s.KoreanName)
		s.BaseKoreanName = base
	}

	s.SearchText = buildSearchText(s)
	return s
}

// NormalizeStudents canonicalizes a raw slice, dropping malformed
// entries.
func NormalizeStudents(raw []*StudentRecord) []*StudentRecord {
	out := make([]*StudentRecord, 0, len(raw))
	for _, entry := range raw {
		if s := NormalizeStudent(entry); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func buildSearchText(s *StudentRecord) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{s.KoreanName, s.BaseKoreanName, s.EnglishName, s.BaseEnglishName, s.WikiSearchName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// LoadBundledStudents parses and normalizes the dataset shipped with
// the binary. A broken payload yields an empty slice, not an error;
// missing data is a valid degraded state.
func LoadBundledStudents() []*StudentRecord {
	return ParseStudentPayload(bundledStudentsJSON)
}

// ParseStudentPayload accepts either the envelope shape or a bare
// array, tolerating the inconsistencies of historical dataset files.
func ParseStudentPayload(data []byte) []*StudentRecord {
	if len(data) == 0 {
		return nil
	}

	var envelope StudentDataset
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Students) > 0 {
		return NormalizeStudents(envelope.Students)
	}

	var bare []*StudentRecord
	if err := json.Unmarshal(data, &bare); err == nil {
		return NormalizeStudents(bare)
	}

	return nil
}
