package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultSourceTag is the trailing component of correlation keys built by
// this engine.
const DefaultSourceTag = "GCDB"

// CorrelationKey identifies the cluster of records that describe one episode
// of one real-world event.
//
//	YYYYMMDD-<CC1_CC2...>-<canonical hazard code>-<episode>-<source tag>
//	e.g. 20241029-ESP-MH0600-1-GCDB
type CorrelationKey string

func (k CorrelationKey) String() string { return string(k) }

var (
	countryRe   = regexp.MustCompile(`^[A-Z]{3}$`)
	sourceTagRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// BuildKey derives the correlation key. The result depends only on the
// arguments: countries are upper-cased, deduplicated and sorted, and
// occurredAt is truncated to its UTC day, so country order and time of day
// never split a cluster. The episode number is kept verbatim.
//
// Failures wrap ErrUnresolvableCorrelationInput.
func BuildKey(countries []string, codes HazardCodeSet, occurredAt time.Time, episode int, sourceTag string) (CorrelationKey, error) {
	hazard, ok := codes.Canonical()
	if !ok {
		return "", fmt.Errorf("%w: no known hazard code in %v", ErrUnresolvableCorrelationInput, codes.Codes())
	}

	cc, err := normalizeCountries(countries)
	if err != nil {
		return "", err
	}
	if occurredAt.IsZero() {
		return "", fmt.Errorf("%w: occurrence time is missing", ErrUnresolvableCorrelationInput)
	}
	if episode < 1 {
		return "", fmt.Errorf("%w: episode number %d must be at least 1", ErrUnresolvableCorrelationInput, episode)
	}
	if !ValidSourceTag(sourceTag) {
		return "", fmt.Errorf("%w: source tag %q", ErrUnresolvableCorrelationInput, sourceTag)
	}

	day := occurredAt.UTC().Format("20060102")
	parts := []string{day, strings.Join(cc, "_"), hazard, strconv.Itoa(episode), sourceTag}
	return CorrelationKey(strings.Join(parts, "-")), nil
}

// ValidSourceTag reports whether tag can end a correlation key.
func ValidSourceTag(tag string) bool {
	return sourceTagRe.MatchString(tag)
}

func normalizeCountries(countries []string) ([]string, error) {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if !countryRe.MatchString(c) {
			return nil, fmt.Errorf("%w: country code %q is not ISO 3166-1 alpha-3", ErrUnresolvableCorrelationInput, c)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no country codes", ErrUnresolvableCorrelationInput)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
