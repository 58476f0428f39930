// internal/widgets/weather.go
//
// Current conditions from the public Open-Meteo API.  The location comes
// from the request's GeoLite2 hit when ctx carries one (the one-shot data
// endpoint), else from the configured default coordinates (shared boards).

package widgets

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/yanizio/threadstead/internal/config"
	"github.com/yanizio/threadstead/internal/fetch"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/widget"
)

const idWeather = "weather"

type meteoResponse struct {
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	CurrentUnits struct {
		Temperature string `json:"temperature_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
}

func weather(c *fetch.Client, cfg config.Weather) widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:              idWeather,
			Title:           "Weather",
			Description:     "Current conditions near you.",
			Category:        widget.CategoryExternal,
			Size:            widget.SizeSmall,
			DefaultEnabled:  true,
			RefreshInterval: 15 * time.Minute,
		},
		Render: renderer(idWeather),
		Fetch: func(ctx context.Context, _ *widget.Viewer) (widget.Data, error) {
			lat, lon, place := cfg.Latitude, cfg.Longitude, ""
			if info := requestinfo.FromContext(ctx); info != nil && info.Geo.Located {
				lat, lon, place = info.Geo.Latitude, info.Geo.Longitude, info.Geo.City
			}

			q := url.Values{
				"latitude":         {strconv.FormatFloat(lat, 'f', 4, 64)},
				"longitude":        {strconv.FormatFloat(lon, 'f', 4, 64)},
				"current":          {"temperature_2m,weather_code,wind_speed_10m"},
				"temperature_unit": {cfg.Units},
				"timezone":         {"auto"},
			}
			if cfg.Units == "fahrenheit" {
				q.Set("wind_speed_unit", "mph")
			}

			var res meteoResponse
			if err := c.GetJSON(ctx, cfg.BaseURL, q, &res); err != nil {
				return nil, err
			}
			return widget.Data{
				"temperature": res.Current.Temperature,
				"unit":        res.CurrentUnits.Temperature,
				"windSpeed":   res.Current.WindSpeed,
				"windUnit":    res.CurrentUnits.WindSpeed,
				"code":        res.Current.WeatherCode,
				"summary":     describeWeather(res.Current.WeatherCode),
				"location":    place,
				"observedAt":  res.Current.Time,
			}, nil
		},
	}
}

// describeWeather maps WMO weather interpretation codes to short labels.
func describeWeather(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return "Rain"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
