package matcher

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"go.uber.org/zap"
)

// Tunables for the fuzzy fallback pass. These recover typos when the
// tiered pass finds nothing; the exact values are not a contract.
const (
	fuzzyMinSimilarity = 0.78
)

// Tiered scores. Lower is better; a student with no scoring field is
// excluded from the primary pass.
const (
	scoreExact       = 0
	scorePrefix      = 1
	scoreSubstring   = 2 // Korean mode: substring / Latin mode: token prefix
	scoreWordBounded = 3 // Latin mode only
)

type scoredStudent struct {
	student *domain.StudentRecord
	score   int
}

// StudentMatcher ranks registry records against a free-form query.
// Korean queries match Korean name fields with exact/prefix/substring
// tiers; Latin queries match normalized English fields with an extra
// token-prefix and word-boundary tier. A fuzzy pass catches typos when
// the tiered pass yields nothing.
type StudentMatcher struct {
	logger     *zap.Logger
	maxResults int
}

func NewStudentMatcher(logger *zap.Logger) *StudentMatcher {
	return &StudentMatcher{
		logger:     logger,
		maxResults: constants.Search.MaxResults,
	}
}

// Rank returns the best matches first, capped to the configured
// maximum, never with duplicate identifiers.
func (m *StudentMatcher) Rank(students []*domain.StudentRecord, query string) []*domain.StudentRecord {
	q := util.NormalizeWhitespace(query)
	if q == "" {
		return nil
	}

	var scored []scoredStudent
	if util.HasHangul(q) {
		scored = m.rankKorean(students, q)
	} else {
		scored = m.rankLatin(students, q)
	}

	if len(scored) == 0 {
		m.logger.Debug("Tiered match empty, falling back to fuzzy", zap.String("query", q))
		return m.rankFuzzy(students, q)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score < scored[j].score
		}
		return scored[i].student.DisplayName() < scored[j].student.DisplayName()
	})

	out := make([]*domain.StudentRecord, 0, util.Min(len(scored), m.maxResults))
	for _, entry := range scored {
		if len(out) == m.maxResults {
			break
		}
		out = append(out, entry.student)
	}
	return out
}

func (m *StudentMatcher) rankKorean(students []*domain.StudentRecord, query string) []scoredStudent {
	scored := make([]scoredStudent, 0, len(students))
	for _, s := range students {
		best := -1
		for _, field := range []string{s.KoreanName, s.BaseKoreanName} {
			if field == "" {
				continue
			}
			var score int
			switch {
			case field == query:
				score = scoreExact
			case strings.HasPrefix(field, query):
				score = scorePrefix
			case strings.Contains(field, query):
				score = scoreSubstring
			default:
				continue
			}
			if best == -1 || score < best {
				best = score
			}
		}
		if best >= 0 {
			scored = append(scored, scoredStudent{student: s, score: best})
		}
	}
	return scored
}

func (m *StudentMatcher) rankLatin(students []*domain.StudentRecord, query string) []scoredStudent {
	q := normalizeLatin(query)
	if q == "" {
		return nil
	}

	scored := make([]scoredStudent, 0, len(students))
	for _, s := range students {
		best := -1
		for _, raw := range []string{s.EnglishName, s.BaseEnglishName, s.WikiSearchName} {
			field := normalizeLatin(raw)
			if field == "" {
				continue
			}
			score, ok := latinFieldScore(field, q)
			if !ok {
				continue
			}
			if best == -1 || score < best {
				best = score
			}
		}
		if best >= 0 {
			scored = append(scored, scoredStudent{student: s, score: best})
		}
	}
	return scored
}

func latinFieldScore(field, query string) (int, bool) {
	if field == query {
		return scoreExact, true
	}
	if strings.HasPrefix(field, query) {
		return scorePrefix, true
	}
	for _, token := range strings.Fields(field) {
		if strings.HasPrefix(token, query) {
			return scoreSubstring, true
		}
	}
	// Word-boundary occurrence: start of string or preceded by a
	// space. Every occurrence counts, not just the first.
	for from := 0; ; {
		idx := strings.Index(field[from:], query)
		if idx < 0 {
			break
		}
		pos := from + idx
		if pos == 0 || field[pos-1] == ' ' {
			return scoreWordBounded, true
		}
		from = pos + 1
	}
	return 0, false
}

// rankFuzzy tolerates small typos and unexpected formatting at the
// cost of less predictable ordering. Results come back in similarity
// order, deduplicated by identifier.
func (m *StudentMatcher) rankFuzzy(students []*domain.StudentRecord, query string) []*domain.StudentRecord {
	type fuzzyHit struct {
		student    *domain.StudentRecord
		similarity float64
	}

	q := util.Normalize(query)
	hits := make([]fuzzyHit, 0)
	for _, s := range students {
		best := 0.0
		for _, field := range fuzzyFields(s) {
			sim := matchr.JaroWinkler(q, util.Normalize(field), false)
			if sim > best {
				best = sim
			}
		}
		if best >= fuzzyMinSimilarity || withinEditDistance(q, s) {
			hits = append(hits, fuzzyHit{student: s, similarity: best})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].similarity != hits[j].similarity {
			return hits[i].similarity > hits[j].similarity
		}
		return hits[i].student.DisplayName() < hits[j].student.DisplayName()
	})

	seen := make(map[string]struct{}, len(hits))
	out := make([]*domain.StudentRecord, 0, util.Min(len(hits), m.maxResults))
	for _, hit := range hits {
		if len(out) == m.maxResults {
			break
		}
		key := hit.student.Href
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, hit.student)
	}
	return out
}

func fuzzyFields(s *domain.StudentRecord) []string {
	fields := make([]string, 0, 4)
	for _, f := range []string{s.EnglishName, s.KoreanName, s.WikiSearchName, s.SearchText} {
		if f != "" {
			fields = append(fields, normalizeLatin(f))
		}
	}
	return fields
}

// withinEditDistance gates on Levenshtein distance scaled by query
// length, so short queries only admit single-character typos.
func withinEditDistance(query string, s *domain.StudentRecord) bool {
	maxDist := 1
	if n := len([]rune(query)); n > 4 {
		maxDist = 2
	}

	for _, field := range []string{s.EnglishName, s.KoreanName, s.BaseEnglishName, s.BaseKoreanName} {
		if field == "" {
			continue
		}
		if matchr.Levenshtein(query, util.Normalize(normalizeLatin(field))) <= maxDist {
			return true
		}
	}
	return false
}

// normalizeLatin lowercases and folds underscores, hyphens and
// parentheses into spaces, then collapses whitespace.
func normalizeLatin(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ", "(", " ", ")", " ").Replace(s)
	return util.NormalizeWhitespace(s)
}
