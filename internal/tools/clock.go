package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/tool"
)

// cityZones maps spoken city names to IANA zones. Unlisted cities fall
// back to a best-effort "Region/City" guess before giving up.
var cityZones = map[string]string{
	"tokyo":         "Asia/Tokyo",
	"london":        "Europe/London",
	"paris":         "Europe/Paris",
	"berlin":        "Europe/Berlin",
	"moscow":        "Europe/Moscow",
	"new york":      "America/New_York",
	"los angeles":   "America/Los_Angeles",
	"chicago":       "America/Chicago",
	"toronto":       "America/Toronto",
	"sydney":        "Australia/Sydney",
	"singapore":     "Asia/Singapore",
	"hong kong":     "Asia/Hong_Kong",
	"beijing":       "Asia/Shanghai",
	"shanghai":      "Asia/Shanghai",
	"seoul":         "Asia/Seoul",
	"dubai":         "Asia/Dubai",
	"delhi":         "Asia/Kolkata",
	"mumbai":        "Asia/Kolkata",
	"sao paulo":     "America/Sao_Paulo",
	"mexico city":   "America/Mexico_City",
	"san francisco": "America/Los_Angeles",
	"amsterdam":     "Europe/Amsterdam",
	"madrid":        "Europe/Madrid",
	"rome":          "Europe/Rome",
	"kyiv":          "Europe/Kyiv",
	"istanbul":      "Europe/Istanbul",
}

func Clock() tool.Spec {
	return tool.Spec{
		Name:        "get_time",
		Description: "Get the current date and time, optionally for a given city.",
		Parameters: schema(map[string]string{
			"city": "City name, e.g. \"Tokyo\". Omit for local time.",
		}),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			city := stringArg(args, "city")
			if city == "" {
				return time.Now().Format("Monday, January 2, 15:04 MST"), nil
			}

			loc, err := cityLocation(city)
			if err != nil {
				return "", err
			}
			now := time.Now().In(loc)
			return fmt.Sprintf("It is %s in %s.", now.Format("15:04 on Monday, January 2"), city), nil
		},
	}
}

func cityLocation(city string) (*time.Location, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	if zone, ok := cityZones[key]; ok {
		return time.LoadLocation(zone)
	}
	// Guess "Region/City" across the common region prefixes.
	words := strings.Fields(key)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	name := strings.Join(words, "_")
	for _, region := range []string{"Europe", "America", "Asia", "Africa", "Australia", "Pacific"} {
		if loc, err := time.LoadLocation(region + "/" + name); err == nil {
			return loc, nil
		}
	}
	return nil, fmt.Errorf("unknown city %q", city)
}
