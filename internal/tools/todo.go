package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jarvis/internal/tool"
)

// todoStore persists tasks in sqlite so they survive restarts.
type todoStore struct {
	db *sql.DB
}

func openTodoStore(path string) (*todoStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create todo dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open todo db: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY,
			task TEXT NOT NULL,
			done INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tasks table: %w", err)
	}
	return &todoStore{db: db}, nil
}

func (s *todoStore) add(ctx context.Context, task string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task, created_at) VALUES (?, ?)`,
		task, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return res.LastInsertId()
}

func (s *todoStore) list(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task, done FROM tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var (
			id   int64
			task string
			done int
		)
		if err := rows.Scan(&id, &task, &done); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		mark := "open"
		if done != 0 {
			mark = "done"
		}
		lines = append(lines, fmt.Sprintf("[%d] (%s) %s", id, mark, task))
	}
	return lines, rows.Err()
}

func (s *todoStore) complete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET done = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %d not found", id)
	}
	return nil
}

// TodoTools opens the store and returns the add/list/complete specs.
func TodoTools(path string) ([]tool.Spec, error) {
	store, err := openTodoStore(path)
	if err != nil {
		return nil, err
	}

	add := tool.Spec{
		Name:        "todo_add",
		Description: "Add a to-do item.",
		Parameters: schema(map[string]string{
			"task": "Task description.",
		}, "task"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			task := stringArg(args, "task")
			if task == "" {
				return "", errors.New("provide a task description")
			}
			id, err := store.add(ctx, task)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Added task %d: %s", id, task), nil
		},
	}

	list := tool.Spec{
		Name:        "todo_list",
		Description: "List to-do items with their ids and status.",
		Parameters:  schema(nil),
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			lines, err := store.list(ctx)
			if err != nil {
				return "", err
			}
			if len(lines) == 0 {
				return "No tasks yet.", nil
			}
			return strings.Join(lines, "\n"), nil
		},
	}

	complete := tool.Spec{
		Name:        "todo_complete",
		Description: "Mark a to-do item complete by id.",
		Parameters: schema(map[string]string{
			"id": "Numeric task id.",
		}, "id"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			raw := stringArg(args, "id")
			if raw == "" {
				// Models sometimes send numbers as numbers.
				if f, ok := args["id"].(float64); ok {
					raw = strconv.FormatInt(int64(f), 10)
				}
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return "", errors.New("provide a numeric task id")
			}
			if err := store.complete(ctx, id); err != nil {
				return "", err
			}
			return fmt.Sprintf("Task %d marked complete.", id), nil
		},
	}

	return []tool.Spec{add, list, complete}, nil
}
