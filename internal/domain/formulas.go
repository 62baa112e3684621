package domain

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"github.com/hodadako/blue-archive-voice-downloader/pkg/errors"
)

//go:embed data/student-name-formulas.json
var nameFormulaJSON []byte

//go:embed data/student-type-formulas.json
var typeFormulaJSON []byte

type nameFormulaFile struct {
	BaseNameMap map[string]string `json:"baseNameMap"`
}

type typeFormulaFile struct {
	EnglishTypeDisplay map[string]string `json:"englishTypeDisplay"`
	KoreanTypeDisplay  map[string]string `json:"koreanTypeDisplay"`
}

// VariantFormulaTable holds the fixed variant-key and base-name
// mappings used by the dataset rebuild. Validated once at load;
// interactive resolution never depends on it.
type VariantFormulaTable struct {
	baseKorean    map[string]string
	englishLabels map[string]string
	koreanLabels  map[string]string
}

// LoadVariantFormulas parses and validates the embedded formula
// documents. Duplicate keys or duplicate display values are
// ValidationErrors; the batch sync that depends on this table must
// fail fast rather than produce a corrupt dataset.
func LoadVariantFormulas() (*VariantFormulaTable, error) {
	return parseVariantFormulas(nameFormulaJSON, typeFormulaJSON)
}

func parseVariantFormulas(nameData, typeData []byte) (*VariantFormulaTable, error) {
	var names nameFormulaFile
	if err := json.Unmarshal(nameData, &names); err != nil {
		return nil, errors.NewDataError("name formula unparsable", "student-name-formulas.json", err)
	}
	var types typeFormulaFile
	if err := json.Unmarshal(typeData, &types); err != nil {
		return nil, errors.NewDataError("type formula unparsable", "student-type-formulas.json", err)
	}

	table := &VariantFormulaTable{
		baseKorean:    make(map[string]string, len(names.BaseNameMap)),
		englishLabels: make(map[string]string, len(types.EnglishTypeDisplay)),
		koreanLabels:  make(map[string]string, len(types.KoreanTypeDisplay)),
	}

	koreanSeen := make(map[string]struct{}, len(names.BaseNameMap))
	for rawKey, korean := range names.BaseNameMap {
		baseKey, _ := util.SplitBaseAndVariant(util.Normalize(util.NormalizeWhitespace(rawKey)))
		if baseKey == "" {
			return nil, errors.NewValidationError("empty base key", "baseNameMap", rawKey)
		}
		if _, dup := table.baseKorean[baseKey]; dup {
			return nil, errors.NewValidationError("duplicated base key", "baseNameMap", baseKey)
		}

		value := util.NormalizeWhitespace(korean)
		if value == "" {
			return nil, errors.NewValidationError("empty korean value", "baseNameMap", rawKey)
		}
		if _, dup := koreanSeen[value]; dup {
			return nil, errors.NewValidationError("duplicated korean value", "baseNameMap", value)
		}
		koreanSeen[value] = struct{}{}
		table.baseKorean[baseKey] = value
	}

	enSeen := make(map[string]struct{}, len(types.EnglishTypeDisplay))
	for key, value := range types.EnglishTypeDisplay {
		key = util.Normalize(util.NormalizeWhitespace(key))
		text := util.NormalizeWhitespace(value)
		if text == "" {
			return nil, errors.NewValidationError("missing englishTypeDisplay", "englishTypeDisplay", key)
		}
		if _, dup := enSeen[text]; dup {
			return nil, errors.NewValidationError("duplicated englishTypeDisplay", "englishTypeDisplay", text)
		}
		enSeen[text] = struct{}{}
		table.englishLabels[key] = text
	}

	koSeen := make(map[string]struct{}, len(types.KoreanTypeDisplay))
	for key, value := range types.KoreanTypeDisplay {
		key = util.Normalize(util.NormalizeWhitespace(key))
		text := util.NormalizeWhitespace(value)
		if text == "" {
			return nil, errors.NewValidationError("missing koreanTypeDisplay", "koreanTypeDisplay", key)
		}
		if _, dup := koSeen[text]; dup {
			return nil, errors.NewValidationError("duplicated koreanTypeDisplay", "koreanTypeDisplay", text)
		}
		koSeen[text] = struct{}{}
		table.koreanLabels[key] = text
	}

	// Every English variant key must have a Korean counterpart.
	for key := range table.englishLabels {
		if _, ok := table.koreanLabels[key]; !ok {
			return nil, errors.NewValidationError("missing koreanTypeDisplay", "koreanTypeDisplay", key)
		}
	}

	return table, nil
}

// KoreanBaseName maps an English base-name key to its canonical Korean
// base name; "" when unknown.
func (t *VariantFormulaTable) KoreanBaseName(baseKey string) string {
	return t.baseKorean[strings.ToLower(baseKey)]
}

// HasVariantKey reports whether key is a recognized costume/season
// variant.
func (t *VariantFormulaTable) HasVariantKey(key string) bool {
	_, ok := t.englishLabels[strings.ToLower(key)]
	return ok
}

// EnglishLabel returns the English display form of a variant key; ""
// when unknown.
func (t *VariantFormulaTable) EnglishLabel(variantKey string) string {
	return t.englishLabels[strings.ToLower(variantKey)]
}

// KoreanLabel returns the Korean display form of a variant key; ""
// when unknown.
func (t *VariantFormulaTable) KoreanLabel(variantKey string) string {
	return t.koreanLabels[strings.ToLower(variantKey)]
}

// VariantKeys lists the recognized variant keys.
func (t *VariantFormulaTable) VariantKeys() []string {
	keys := make([]string, 0, len(t.englishLabels))
	for key := range t.englishLabels {
		keys = append(keys, key)
	}
	return keys
}
