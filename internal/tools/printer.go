package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"jarvis/internal/tool"
)

// PrinterStatus probes a Bambu Lab printer's local status endpoint.
func PrinterStatus(client *http.Client) tool.Spec {
	return tool.Spec{
		Name:        "printer_status",
		Description: "Check the 3D printer status: current job, state, progress, and remaining time. Needs the printer IP (or env BAMBU_IP) and optionally an access code (env BAMBU_ACCESS_CODE).",
		Parameters: schema(map[string]string{
			"printer_ip":  "Printer IP address. Defaults to env BAMBU_IP.",
			"access_code": "Printer access code. Defaults to env BAMBU_ACCESS_CODE.",
		}),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			ip := stringArg(args, "printer_ip")
			if ip == "" {
				ip = strings.TrimSpace(os.Getenv("BAMBU_IP"))
			}
			if ip == "" {
				return "", errors.New("set printer_ip or env BAMBU_IP")
			}
			code := stringArg(args, "access_code")
			if code == "" {
				code = strings.TrimSpace(os.Getenv("BAMBU_ACCESS_CODE"))
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet,
				fmt.Sprintf("http://%s/server/state", ip), nil)
			if err != nil {
				return "", err
			}
			if code != "" {
				req.Header.Set("Authorization", "Basic "+code)
			}

			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("reach printer at %s: %w", ip, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("printer at %s answered %s", ip, resp.Status)
			}
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return "", err
			}

			state := gjson.GetBytes(body, "print.state").String()
			if state == "" {
				state = "unknown"
			}
			parts := []string{
				"Job: " + orUnknown(gjson.GetBytes(body, "print.file").String()),
				"State: " + state,
				fmt.Sprintf("Progress: %d%%", gjson.GetBytes(body, "print.progress").Int()),
				fmt.Sprintf("Time remaining: %d min", gjson.GetBytes(body, "print.remaining_time").Int()),
			}
			if bed := gjson.GetBytes(body, "temperature.bed.current"); bed.Exists() {
				parts = append(parts, fmt.Sprintf("Bed: %.0f°C", bed.Float()))
			}
			if nozzle := gjson.GetBytes(body, "temperature.nozzle.current"); nozzle.Exists() {
				parts = append(parts, fmt.Sprintf("Nozzle: %.0f°C", nozzle.Float()))
			}
			return strings.Join(parts, " | "), nil
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
