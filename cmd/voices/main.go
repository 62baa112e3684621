package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hodadako/blue-archive-voice-downloader/internal/app"
	"github.com/hodadako/blue-archive-voice-downloader/internal/config"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"go.uber.org/zap"
)

const usage = `Usage: voices <command> [flags]

Commands:
  search   <query>          rank students matching a Korean or English name
  resolve  <query>          resolve the best match's voice file links
  download <query>          resolve and download voice files
  sync                      rebuild the voice link cache for all students

Flags follow the command, e.g.: voices sync -force -concurrency 8
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	command := os.Args[1]
	args := os.Args[2:]

	var runErr error
	switch command {
	case "search":
		runErr = runSearch(container, args)
	case "resolve":
		runErr = runResolve(ctx, container, args)
	case "download":
		runErr = runDownload(ctx, container, args)
	case "sync":
		runErr = runSync(ctx, container, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if runErr != nil {
		logger.Error("Command failed", zap.String("command", command), zap.Error(runErr))
		os.Exit(1)
	}
}

func runSearch(container *app.Container, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print results as JSON")
	fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search needs a query")
	}

	matches := container.Voice.SearchStudents(query)
	if *asJSON {
		return printJSON(matches)
	}

	if len(matches) == 0 {
		fmt.Println("검색 결과가 없습니다.")
		return nil
	}
	for i, m := range matches {
		label := m.DisplayName()
		if m.KoreanName != "" && m.EnglishName != "" {
			label = fmt.Sprintf("%s (%s)", m.EnglishName, m.KoreanName)
		}
		fmt.Printf("%2d. %s\n", i+1, label)
	}
	return nil
}

func runResolve(ctx context.Context, container *app.Container, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print result as JSON")
	fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("resolve needs a query")
	}

	result := container.Voice.ResolveVoicesForStudent(ctx, query)
	if *asJSON {
		return printJSON(result)
	}

	if !result.OK {
		fmt.Println(result.Message)
		return nil
	}

	fmt.Printf("%s — %s (%d files%s)\n",
		result.Student.DisplayName(),
		result.AudioPageTitle,
		len(result.FileTitles),
		cacheSuffix(result.FromCache),
	)
	for _, title := range result.FileTitles {
		fmt.Printf("  %s\n", title)
		for _, link := range result.LinksByFile[title] {
			fmt.Printf("    %s\n", link)
		}
	}
	return nil
}

func runDownload(ctx context.Context, container *app.Container, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	targetDir := fs.String("dir", "downloads", "target directory")
	fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("download needs a query")
	}

	resolved := container.Voice.ResolveVoicesForStudent(ctx, query)
	if !resolved.OK {
		fmt.Println(resolved.Message)
		return nil
	}

	result := container.Voice.DownloadVoiceFiles(
		ctx,
		resolved.Student.DisplayName(),
		resolved.FileTitles,
		resolved.LinksByFile,
		*targetDir,
		consoleProgress,
	)

	fmt.Printf("%s (%d/%d) → %s\n", result.Message, result.SuccessCount, result.TotalCount, result.TargetDir)
	for _, r := range result.Results {
		if !r.OK {
			fmt.Printf("  실패: %s (%s)\n", r.FileTitle, r.Reason)
		}
	}
	return nil
}

func runSync(ctx context.Context, container *app.Container, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	force := fs.Bool("force", false, "refresh entries even when cached")
	concurrency := fs.Int("concurrency", container.Config.Sync.Concurrency, "worker count")
	filter := fs.String("filter", "", "only sync students whose name contains this substring")
	key := fs.String("key", "", "only sync the student with this exact cache key")
	fs.Parse(args)

	report, err := container.Syncer.SyncAllVoiceLinks(ctx, service.SyncOptions{
		Concurrency:  *concurrency,
		ForceRefresh: *force,
		FilterQuery:  *filter,
		FilterKey:    *key,
		Progress:     consoleProgress,
	})
	if err != nil {
		return err
	}

	fmt.Printf("sync done: %d ok, %d failed, %d cached, %d total\n",
		report.SuccessCount, report.FailCount, report.SkippedCount, report.Total)
	return nil
}

func consoleProgress(ev domain.ProgressEvent) {
	status := "ok"
	if !ev.OK {
		status = "fail"
	}
	line := fmt.Sprintf("[%d/%d] %s %s", ev.Completed, ev.Total, status, ev.CurrentItem)
	if ev.Reason != "" && ev.Reason != "cached" {
		line += " (" + util.TruncateString(ev.Reason, 80) + ")"
	}
	fmt.Println(line)
}

func cacheSuffix(fromCache bool) string {
	if fromCache {
		return ", cached"
	}
	return ""
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
