package application

import (
	"sort"
	"strings"
)

// StatusFilterAll is the sentinel that disables stage filtering. An empty
// filter behaves the same way.
const StatusFilterAll = "all"

// SortConfig names the active sort column and its direction. A nil config
// means the default order: most recently updated first.
type SortConfig struct {
	Key        string
	Descending bool
}

// Sortable keys. "status" sorts by pipeline index rather than lexically;
// "solicitor.firmName" is resolved as a nested lookup.
var sortKeys = map[string]bool{
	"clientName":             true,
	"clientEmail":            true,
	"propertyAddress":        true,
	"loanAmount":             true,
	"mortgageLender":         true,
	"interestRate":           true,
	"interestRateExpiryDate": true,
	"status":                 true,
	"solicitor.firmName":     true,
}

// ValidSortKey reports whether key is in the sortable allow-list.
func ValidSortKey(key string) bool {
	return sortKeys[key]
}

// NextSortConfig implements the column-header toggle: clicking a new key sorts
// ascending, re-clicking the active key flips the direction.
func NextSortConfig(current *SortConfig, key string) SortConfig {
	if current != nil && current.Key == key {
		return SortConfig{Key: key, Descending: !current.Descending}
	}
	return SortConfig{Key: key}
}

// FilterAndSort narrows apps by stage equality and free-text search, then
// orders the result. The input slice is never mutated. Both filters pass
// everything through when empty; an unknown sort key falls back to the
// default order.
func FilterAndSort(apps []Application, statusFilter, searchTerm string, sortCfg *SortConfig) []Application {
	out := make([]Application, 0, len(apps))

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	for _, app := range apps {
		if statusFilter != "" && statusFilter != StatusFilterAll && string(app.Stage) != statusFilter {
			continue
		}
		if term != "" && !matchesSearch(app, term) {
			continue
		}
		out = append(out, app)
	}

	if sortCfg == nil || !ValidSortKey(sortCfg.Key) {
		sortByLastUpdated(out)
		return out
	}
	sortByKey(out, *sortCfg)
	return out
}

// matchesSearch reports whether any searchable field contains term. The
// candidate set covers the columns rendered in the application table,
// including the stage's display name and the solicitor firm.
func matchesSearch(app Application, term string) bool {
	candidates := []string{
		app.ClientName,
		app.ClientEmail,
		app.PropertyAddress,
		app.MortgageLender,
		app.Solicitor.FirmName,
		app.Stage.DisplayName(),
	}
	for _, field := range candidates {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// sortByLastUpdated is the default order: descending by the most recent
// history timestamp. Empty history reads as the zero time and sorts last.
func sortByLastUpdated(apps []Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].LastUpdated().After(apps[j].LastUpdated())
	})
}

// sortValue resolves the comparable value for a sort key. ok is false when the
// record has no value for the key; missing values sort last regardless of
// direction.
type sortValue struct {
	str   string
	num   float64
	isNum bool
}

func valueForKey(app Application, key string) (sortValue, bool) {
	switch key {
	case "clientName":
		return strValue(app.ClientName)
	case "clientEmail":
		return strValue(app.ClientEmail)
	case "propertyAddress":
		return strValue(app.PropertyAddress)
	case "mortgageLender":
		return strValue(app.MortgageLender)
	case "solicitor.firmName":
		return strValue(app.Solicitor.FirmName)
	case "loanAmount":
		return sortValue{num: app.LoanAmount, isNum: true}, true
	case "interestRate":
		return sortValue{num: app.InterestRate, isNum: true}, true
	case "interestRateExpiryDate":
		if app.InterestRateExpiryDate == nil {
			return sortValue{}, false
		}
		return sortValue{num: float64(app.InterestRateExpiryDate.UnixMilli()), isNum: true}, true
	case "status":
		return sortValue{num: float64(app.Stage.Index()), isNum: true}, true
	default:
		return sortValue{}, false
	}
}

func strValue(s string) (sortValue, bool) {
	if s == "" {
		return sortValue{}, false
	}
	return sortValue{str: strings.ToLower(s)}, true
}

func sortByKey(apps []Application, cfg SortConfig) {
	sort.SliceStable(apps, func(i, j int) bool {
		vi, oki := valueForKey(apps[i], cfg.Key)
		vj, okj := valueForKey(apps[j], cfg.Key)

		// Records without a value always sink to the end.
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}

		var less bool
		if vi.isNum {
			if vi.num == vj.num {
				return false
			}
			less = vi.num < vj.num
		} else {
			if vi.str == vj.str {
				return false
			}
			less = vi.str < vj.str
		}
		if cfg.Descending {
			return !less
		}
		return less
	})
}
