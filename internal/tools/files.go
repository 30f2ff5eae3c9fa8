package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jarvis/internal/tool"
)

const maxFileResults = 10

// FindFile searches the given roots (default: Downloads, Documents,
// Desktop under the home dir) for names containing the query.
func FindFile(roots []string) tool.Spec {
	return tool.Spec{
		Name:        "find_file",
		Description: "Find files whose names contain the query across common user folders.",
		Parameters: schema(map[string]string{
			"query": "File name or part of it.",
		}, "query"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			needle := strings.ToLower(stringArg(args, "query"))
			if needle == "" {
				return "", errors.New("provide a file name or part of it")
			}

			dirs := roots
			if len(dirs) == 0 {
				dirs = defaultSearchDirs()
			}

			type match struct {
				path  string
				mtime int64
			}
			var matches []match
			for _, base := range dirs {
				if _, err := os.Stat(base); err != nil {
					continue
				}
				filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
					if err != nil {
						return nil
					}
					if ctx.Err() != nil {
						return ctx.Err()
					}
					if d.IsDir() || !strings.Contains(strings.ToLower(d.Name()), needle) {
						return nil
					}
					var mtime int64
					if info, ierr := d.Info(); ierr == nil {
						mtime = info.ModTime().Unix()
					}
					matches = append(matches, match{path: path, mtime: mtime})
					return nil
				})
			}
			if len(matches) == 0 {
				return fmt.Sprintf("No matches for %q.", needle), nil
			}

			sort.Slice(matches, func(i, j int) bool { return matches[i].mtime > matches[j].mtime })
			if len(matches) > maxFileResults {
				matches = matches[:maxFileResults]
			}
			lines := make([]string, len(matches))
			for i, m := range matches {
				lines[i] = "- " + m.path
			}
			return "Found:\n" + strings.Join(lines, "\n"), nil
		},
	}
}

// RecentDownloads lists the newest entries in the downloads dir
// (default: ~/Downloads).
func RecentDownloads(dir string) tool.Spec {
	return tool.Spec{
		Name:        "list_recent_downloads",
		Description: "List the most recent files in the Downloads folder.",
		Parameters:  schema(nil),
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			downloads := dir
			if downloads == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return "", err
				}
				downloads = filepath.Join(home, "Downloads")
			}

			entries, err := os.ReadDir(downloads)
			if err != nil {
				return "Downloads folder not found.", nil
			}
			if len(entries) == 0 {
				return "No items in Downloads.", nil
			}

			type item struct {
				name  string
				mtime int64
			}
			items := make([]item, 0, len(entries))
			for _, e := range entries {
				info, err := e.Info()
				if err != nil {
					continue
				}
				items = append(items, item{name: e.Name(), mtime: info.ModTime().Unix()})
			}
			sort.Slice(items, func(i, j int) bool { return items[i].mtime > items[j].mtime })
			if len(items) > maxFileResults {
				items = items[:maxFileResults]
			}
			lines := make([]string, len(items))
			for i, it := range items {
				lines[i] = "- " + it.name
			}
			return "Recent Downloads:\n" + strings.Join(lines, "\n"), nil
		},
	}
}

func defaultSearchDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Downloads"),
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Desktop"),
	}
}
