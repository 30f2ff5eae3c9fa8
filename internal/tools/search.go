package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"jarvis/internal/tool"
)

// searchEndpoint is a var so tests can point it at a fake server.
var searchEndpoint = "https://api.duckduckgo.com/"

const maxSearchResults = 3

// WebSearch queries the DuckDuckGo instant-answer API.
func WebSearch(client *http.Client) tool.Spec {
	return tool.Spec{
		Name:        "web_search",
		Description: "Search the web for a short factual answer.",
		Parameters: schema(map[string]string{
			"query": "What to search for.",
		}, "query"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query := stringArg(args, "query")
			if query == "" {
				return "", errors.New("missing query")
			}

			u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
				searchEndpoint, url.QueryEscape(query))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("search request: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("search answered %s", resp.Status)
			}
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return "", err
			}

			if abstract := gjson.GetBytes(body, "AbstractText").String(); abstract != "" {
				return abstract, nil
			}
			if answer := gjson.GetBytes(body, "Answer").String(); answer != "" {
				return answer, nil
			}

			var lines []string
			gjson.GetBytes(body, "RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
				if text := topic.Get("Text").String(); text != "" {
					lines = append(lines, "- "+text)
				}
				return len(lines) < maxSearchResults
			})
			if len(lines) == 0 {
				return fmt.Sprintf("No results for %q.", query), nil
			}
			return strings.Join(lines, "\n"), nil
		},
	}
}
