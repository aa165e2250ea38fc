// Package localize provides the translation tables for user-facing strings.
// Lookup is a pure mapping: language tag -> key -> string, with English as
// the fallback and the key itself as the last resort.
package localize

import "strings"

// DefaultLanguage is used when a translation is missing.
const DefaultLanguage = "en"

var translations = map[string]map[string]string{
	"en": {
		"layout_list":     "List",
		"layout_grid":     "Grid",
		"layout_gauge":    "Gauge",
		"layout_compact":  "Compact",
		"layout_detailed": "Detailed",

		"group_type":  "Type",
		"group_area":  "Area",
		"group_floor": "Floor",
		"group_none":  "No grouping",

		"sort_name":         "Name",
		"sort_state":        "State",
		"sort_last_changed": "Last changed",
		"sort_area":         "Area",

		"device_temperature":                "Temperature",
		"device_humidity":                   "Humidity",
		"device_battery":                    "Battery",
		"device_pressure":                   "Pressure",
		"device_illuminance":                "Illuminance",
		"device_power":                      "Power",
		"device_energy":                     "Energy",
		"device_carbon_dioxide":             "CO₂",
		"device_volatile_organic_compounds": "VOC",
		"device_pm25":                       "PM2.5",
		"device_signal_strength":            "Signal",
		"device_other":                      "Other",

		"empty_no_entities": "No entities to display",
		"loading":           "Loading...",
		"time_last_changed": "Last changed",
		"time_now":          "just now",

		"group_no_area":  "No area",
		"group_no_floor": "No floor",
		"group_all":      "All",
	},
	"cs": {
		"layout_list":     "Seznam",
		"layout_grid":     "Mřížka",
		"layout_gauge":    "Ukazatel",
		"layout_compact":  "Kompaktní",
		"layout_detailed": "Podrobné",

		"group_type":  "Typ",
		"group_area":  "Oblast",
		"group_floor": "Patro",
		"group_none":  "Neseskupovat",

		"sort_name":         "Název",
		"sort_state":        "Stav",
		"sort_last_changed": "Poslední změna",
		"sort_area":         "Oblast",

		"device_temperature":                "Teplota",
		"device_humidity":                   "Vlhkost",
		"device_battery":                    "Baterie",
		"device_pressure":                   "Tlak",
		"device_illuminance":                "Osvětlení",
		"device_power":                      "Výkon",
		"device_energy":                     "Energie",
		"device_carbon_dioxide":             "CO₂",
		"device_volatile_organic_compounds": "VOC",
		"device_pm25":                       "PM2.5",
		"device_signal_strength":            "Signál",
		"device_other":                      "Ostatní",

		"empty_no_entities": "Žádné entity k zobrazení",
		"loading":           "Načítání...",
		"time_last_changed": "Naposledy změněno",
		"time_now":          "právě teď",

		"group_no_area":  "Bez oblasti",
		"group_no_floor": "Bez patra",
		"group_all":      "Všechny",
	},
}

// Localize resolves key for a language tag. Regional tags collapse to their
// base language (cs-CZ -> cs); unknown languages and missing keys fall back
// to English, then to the key itself.
func Localize(key, language string) string {
	lang := strings.ToLower(language)
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}
	if table, ok := translations[lang]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := translations[DefaultLanguage][key]; ok {
		return s
	}
	return key
}

// GroupTitle renders a group key for display. Device class keys and the
// sentinel group keys translate; area and floor names pass through as-is.
func GroupTitle(key, language string) string {
	switch key {
	case "no area":
		return Localize("group_no_area", language)
	case "no floor":
		return Localize("group_no_floor", language)
	case "all":
		return Localize("group_all", language)
	case "other", "unknown":
		return Localize("device_other", language)
	}
	deviceKey := "device_" + key
	if _, ok := translations[DefaultLanguage][deviceKey]; ok {
		return Localize(deviceKey, language)
	}
	return key
}
