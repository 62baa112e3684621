package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hodadako/blue-archive-voice-downloader/internal/app"
	"github.com/hodadako/blue-archive-voice-downloader/internal/config"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"go.uber.org/zap"
)

// Rebuilds the bundled student dataset from the wiki's character
// index. Output goes to a file, not the embedded copy; the result is
// reviewed and committed by hand.
func main() {
	outPath := flag.String("out", filepath.Join("internal", "domain", "data", "students.json"), "output path for the rebuilt dataset")
	skipAudioCheck := flag.Bool("skip-audio-check", false, "keep characters even when no audio page is reachable")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// A broken formula table must abort before any scraping happens.
	formulas, err := domain.LoadVariantFormulas()
	if err != nil {
		logger.Error("Variant formula validation failed", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	entries, err := container.Scraper.FetchCharacterEntries(ctx)
	if err != nil {
		logger.Error("Character index fetch failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Character index fetched", zap.Int("entries", len(entries)))

	students := make([]*domain.StudentRecord, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		student := buildStudent(formulas, entry.Title, entry.ImageURL)
		if student == nil {
			logger.Debug("Character entry skipped", zap.String("title", entry.Title))
			continue
		}
		if _, dup := seen[student.Href]; dup {
			continue
		}
		seen[student.Href] = struct{}{}

		// Characters without a reachable audio page are not voice
		// sources and stay out of the dataset.
		if !*skipAudioCheck {
			if resolved, err := container.Scraper.ResolveAudioFiles(ctx, student.WikiSearchName); err != nil || !resolved.Usable() {
				logger.Info("Character has no audio page, skipped",
					zap.String("title", entry.Title),
					zap.Error(err),
				)
				continue
			}
		}

		students = append(students, student)
	}

	sort.Slice(students, func(i, j int) bool {
		return students[i].EnglishName < students[j].EnglishName
	})

	payload := &domain.StudentDataset{
		UpdatedAt: time.Now().UnixMilli(),
		Source:    "wiki",
		Students:  students,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logger.Error("Dataset encode failed", zap.Error(err))
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, append(data, '\n'), 0644); err != nil {
		logger.Error("Dataset write failed", zap.String("path", *outPath), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Student dataset rebuilt",
		zap.String("path", *outPath),
		zap.Int("students", len(students)),
	)
}

// buildStudent derives the canonical record from one wiki page title.
// Titles with unknown base names are dropped: the formula table is the
// authority on who counts as a student.
func buildStudent(formulas *domain.VariantFormulaTable, title, imageURL string) *domain.StudentRecord {
	slug := util.ToSlug(title)
	if slug == "" {
		return nil
	}

	base, variantKey := util.SplitBaseAndVariant(slug)
	koreanBase := formulas.KoreanBaseName(base)
	if koreanBase == "" {
		return nil
	}
	if variantKey != "" && !formulas.HasVariantKey(variantKey) {
		return nil
	}

	student := &domain.StudentRecord{
		Href:            "/student-detail/" + slug,
		EnglishName:     slug,
		KoreanName:      koreanBase,
		BaseEnglishName: base,
		BaseKoreanName:  koreanBase,
		WikiSearchName:  util.NormalizeWhitespace(title),
		ImageURL:        imageURL,
	}

	if variantKey != "" {
		student.VariantKey = variantKey
		student.EnglishVariantLabel = formulas.EnglishLabel(variantKey)
		student.KoreanVariantLabel = formulas.KoreanLabel(variantKey)
		student.KoreanName = koreanBase + "_" + student.KoreanVariantLabel
	}

	return domain.NormalizeStudent(student)
}
