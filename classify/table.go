// Package classify holds the built-in display classification tables and the
// lookup rules that resolve a device class to its effective type
// configuration.
package classify

import "github.com/timzifer/entitycard/config"

func f(v float64) *float64 { return &v }
func p(v int) *int         { return &v }

// builtin maps a device class to its default display configuration. Range
// order is significant: the first range containing a value wins.
var builtin = map[string]config.EntityTypeConfig{
	"temperature": {
		DeviceClass: "temperature",
		Icon:        "mdi:thermometer",
		Unit:        "°C",
		Precision:   p(1),
		ShowGraph:   true,
		GraphHours:  24,
		Ranges: []config.ValueRange{
			{Max: f(10), Color: "#3498db", Icon: "mdi:snowflake", Label: "Cold"},
			{Min: f(10), Max: f(18), Color: "#5dade2", Icon: "mdi:thermometer-low", Label: "Cool"},
			{Min: f(18), Max: f(24), Color: "#52c41a", Icon: "mdi:thermometer", Label: "Comfortable"},
			{Min: f(24), Max: f(28), Color: "#faad14", Icon: "mdi:thermometer-high", Label: "Warm"},
			{Min: f(28), Color: "#f5222d", Icon: "mdi:fire", Label: "Hot", Warning: true},
		},
	},
	"humidity": {
		DeviceClass: "humidity",
		Icon:        "mdi:water-percent",
		Unit:        "%",
		Precision:   p(0),
		ShowGraph:   true,
		GraphHours:  24,
		Ranges: []config.ValueRange{
			{Max: f(30), Color: "#faad14", Icon: "mdi:water-minus", Label: "Dry", Warning: true},
			{Min: f(30), Max: f(40), Color: "#52c41a", Icon: "mdi:water-percent", Label: "Low"},
			{Min: f(40), Max: f(60), Color: "#1890ff", Icon: "mdi:water-percent", Label: "Optimal"},
			{Min: f(60), Max: f(70), Color: "#13c2c2", Icon: "mdi:water-percent", Label: "High"},
			{Min: f(70), Color: "#f5222d", Icon: "mdi:water-plus", Label: "Humid", Warning: true},
		},
	},
	"battery": {
		DeviceClass: "battery",
		Icon:        "mdi:battery",
		Unit:        "%",
		Precision:   p(0),
		Ranges: []config.ValueRange{
			{Max: f(10), Color: "#f5222d", Icon: "mdi:battery-10", Label: "Critical", Warning: true},
			{Min: f(10), Max: f(20), Color: "#fa8c16", Icon: "mdi:battery-20", Label: "Low", Warning: true},
			{Min: f(20), Max: f(50), Color: "#faad14", Icon: "mdi:battery-50", Label: "Medium"},
			{Min: f(50), Max: f(80), Color: "#52c41a", Icon: "mdi:battery-70", Label: "Good"},
			{Min: f(80), Color: "#1890ff", Icon: "mdi:battery", Label: "Full"},
		},
	},
	"pressure": {
		DeviceClass: "pressure",
		Icon:        "mdi:gauge",
		Unit:        "hPa",
		Precision:   p(0),
		ShowGraph:   true,
		GraphHours:  48,
		Ranges: []config.ValueRange{
			{Max: f(980), Color: "#f5222d", Icon: "mdi:weather-pouring", Label: "Low"},
			{Min: f(980), Max: f(1000), Color: "#faad14", Icon: "mdi:weather-cloudy", Label: "Variable"},
			{Min: f(1000), Max: f(1020), Color: "#52c41a", Icon: "mdi:weather-partly-cloudy", Label: "Normal"},
			{Min: f(1020), Color: "#1890ff", Icon: "mdi:weather-sunny", Label: "High"},
		},
	},
	"illuminance": {
		DeviceClass: "illuminance",
		Icon:        "mdi:brightness-5",
		Unit:        "lx",
		Precision:   p(0),
		Ranges: []config.ValueRange{
			{Max: f(1), Color: "#1a1a1a", Icon: "mdi:brightness-1", Label: "Dark"},
			{Min: f(1), Max: f(50), Color: "#595959", Icon: "mdi:brightness-2", Label: "Dim"},
			{Min: f(50), Max: f(200), Color: "#8c8c8c", Icon: "mdi:brightness-4", Label: "Moderate"},
			{Min: f(200), Max: f(500), Color: "#bfbfbf", Icon: "mdi:brightness-5", Label: "Bright"},
			{Min: f(500), Color: "#fafafa", Icon: "mdi:brightness-7", Label: "Very Bright"},
		},
	},
	"power": {
		DeviceClass: "power",
		Icon:        "mdi:flash",
		Unit:        "W",
		Precision:   p(1),
		ShowGraph:   true,
		GraphHours:  24,
		Ranges: []config.ValueRange{
			{Max: f(10), Color: "#52c41a", Icon: "mdi:flash-off", Label: "Low"},
			{Min: f(10), Max: f(100), Color: "#1890ff", Icon: "mdi:flash-outline", Label: "Medium"},
			{Min: f(100), Max: f(500), Color: "#faad14", Icon: "mdi:flash", Label: "High"},
			{Min: f(500), Color: "#f5222d", Icon: "mdi:flash-alert", Label: "Very High", Warning: true},
		},
	},
	"energy": {
		DeviceClass: "energy",
		Icon:        "mdi:lightning-bolt",
		Unit:        "kWh",
		Precision:   p(2),
		ShowGraph:   true,
		GraphHours:  168,
		Ranges: []config.ValueRange{
			{Max: f(1), Color: "#52c41a", Icon: "mdi:leaf", Label: "Low"},
			{Min: f(1), Max: f(5), Color: "#1890ff", Icon: "mdi:lightning-bolt-outline", Label: "Medium"},
			{Min: f(5), Max: f(10), Color: "#faad14", Icon: "mdi:lightning-bolt", Label: "High"},
			{Min: f(10), Color: "#f5222d", Icon: "mdi:alert", Label: "Very High"},
		},
	},
	"carbon_dioxide": {
		DeviceClass: "carbon_dioxide",
		Icon:        "mdi:molecule-co2",
		Unit:        "ppm",
		Precision:   p(0),
		ShowGraph:   true,
		GraphHours:  24,
		Ranges: []config.ValueRange{
			{Max: f(600), Color: "#52c41a", Icon: "mdi:check-circle", Label: "Excellent"},
			{Min: f(600), Max: f(800), Color: "#1890ff", Icon: "mdi:information", Label: "Good"},
			{Min: f(800), Max: f(1000), Color: "#faad14", Icon: "mdi:alert-circle", Label: "Moderate"},
			{Min: f(1000), Max: f(1500), Color: "#fa8c16", Icon: "mdi:alert", Label: "Poor", Warning: true},
			{Min: f(1500), Color: "#f5222d", Icon: "mdi:alert-octagon", Label: "Bad", Warning: true},
		},
	},
	"volatile_organic_compounds": {
		DeviceClass: "volatile_organic_compounds",
		Icon:        "mdi:air-filter",
		Unit:        "µg/m³",
		Precision:   p(0),
		Ranges: []config.ValueRange{
			{Max: f(50), Color: "#52c41a", Label: "Excellent"},
			{Min: f(50), Max: f(100), Color: "#1890ff", Label: "Good"},
			{Min: f(100), Max: f(300), Color: "#faad14", Label: "Moderate"},
			{Min: f(300), Max: f(500), Color: "#fa8c16", Label: "Poor", Warning: true},
			{Min: f(500), Color: "#f5222d", Label: "Bad", Warning: true},
		},
	},
	"pm25": {
		DeviceClass: "pm25",
		Icon:        "mdi:dots-hexagon",
		Unit:        "µg/m³",
		Precision:   p(0),
		Ranges: []config.ValueRange{
			{Max: f(12), Color: "#52c41a", Label: "Good"},
			{Min: f(12), Max: f(35), Color: "#faad14", Label: "Moderate"},
			{Min: f(35), Max: f(55), Color: "#fa8c16", Label: "Unhealthy for Sensitive", Warning: true},
			{Min: f(55), Color: "#f5222d", Label: "Unhealthy", Warning: true},
		},
	},
	"signal_strength": {
		DeviceClass: "signal_strength",
		Icon:        "mdi:wifi",
		Unit:        "dBm",
		Precision:   p(0),
		Ranges: []config.ValueRange{
			{Max: f(-90), Color: "#f5222d", Icon: "mdi:wifi-strength-1", Label: "Weak"},
			{Min: f(-90), Max: f(-70), Color: "#faad14", Icon: "mdi:wifi-strength-2", Label: "Fair"},
			{Min: f(-70), Max: f(-50), Color: "#52c41a", Icon: "mdi:wifi-strength-3", Label: "Good"},
			{Min: f(-50), Color: "#1890ff", Icon: "mdi:wifi-strength-4", Label: "Excellent"},
		},
	},
}

// domainIcons provides the generic icon for an entity domain when neither the
// matched range nor the type configuration supplies one.
var domainIcons = map[string]string{
	"sensor":        "mdi:eye",
	"binary_sensor": "mdi:checkbox-marked-circle",
	"light":         "mdi:lightbulb",
	"switch":        "mdi:light-switch",
	"climate":       "mdi:thermostat",
	"fan":           "mdi:fan",
	"cover":         "mdi:window-shutter",
	"lock":          "mdi:lock",
	"media_player":  "mdi:speaker",
	"camera":        "mdi:camera",
}
