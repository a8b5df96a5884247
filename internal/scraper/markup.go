// internal/scraper/markup.go
package scraper

import (
	"fmt"
	"net/url"
	"regexp"
)

// Markup holds every site-specific constant the resolver and extractor
// depend on. Selectors starting with "//" are XPath, everything else is CSS.
type Markup struct {
	SiteURL string `yaml:"site_url" json:"site_url"`

	// Search form driven through the browser
	SearchInput     string `yaml:"search_input" json:"search_input"`
	SearchButton    string `yaml:"search_button" json:"search_button"`
	ResultContainer string `yaml:"result_container" json:"result_container"`

	// Detail page
	ShortDescription   string `yaml:"short_description" json:"short_description"`
	Title              string `yaml:"title" json:"title"`
	ProgramCode        string `yaml:"program_code" json:"program_code"`
	CityLabel          string `yaml:"city_label" json:"city_label"`
	AirlineLabel       string `yaml:"airline_label" json:"airline_label"`
	DurationPattern    string `yaml:"duration_pattern" json:"duration_pattern"`
	Highlight          string `yaml:"highlight" json:"highlight"`
	DayBox             string `yaml:"day_box" json:"day_box"`
	DayTopic           string `yaml:"day_topic" json:"day_topic"`
	PriceBox           string `yaml:"price_box" json:"price_box"`
	StartingPriceStyle string `yaml:"starting_price_style" json:"starting_price_style"`
	SpecialPriceStyle  string `yaml:"special_price_style" json:"special_price_style"`
}

// DefaultMarkup returns the constants for go365travel.com
func DefaultMarkup() Markup {
	return Markup{
		SiteURL: "https://www.go365travel.com/",

		SearchInput:     "//input[@placeholder='จะไปเที่ยวที่ไหน? หาสะดวก รวดเร็ว...']",
		SearchButton:    "//button[@class='btn btn-info btn-lg']",
		ResultContainer: "div.tour-box-main",

		ShortDescription:   "div.short-description",
		Title:              "h1.font-topic",
		ProgramCode:        "input#linkCode",
		CityLabel:          "เที่ยวเมือง :",
		AirlineLabel:       "สายการบิน :",
		DurationPattern:    `^[\s\p{Z}]*\p{Nd}+[\s\p{Z}]*วัน[\s\p{Z}]*\p{Nd}+[\s\p{Z}]*คืน[\s\p{Z}]*$`,
		Highlight:          "span.descript_hilight",
		DayBox:             "div.timeline__box",
		DayTopic:           "p.dayTopic",
		PriceBox:           "div.price",
		StartingPriceStyle: "font-size:26px",
		SpecialPriceStyle:  "font-size:38px !important;",
	}
}

// Validate reports the first constant that cannot be used
func (m Markup) Validate() error {
	u, err := url.Parse(m.SiteURL)
	if err != nil {
		return fmt.Errorf("site_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site_url: must be an absolute http(s) URL, got %q", m.SiteURL)
	}

	if _, err := regexp.Compile(m.DurationPattern); err != nil {
		return fmt.Errorf("duration_pattern: %w", err)
	}

	required := []struct{ name, value string }{
		{"search_input", m.SearchInput},
		{"search_button", m.SearchButton},
		{"result_container", m.ResultContainer},
		{"short_description", m.ShortDescription},
		{"title", m.Title},
		{"program_code", m.ProgramCode},
		{"city_label", m.CityLabel},
		{"airline_label", m.AirlineLabel},
		{"highlight", m.Highlight},
		{"day_box", m.DayBox},
		{"day_topic", m.DayTopic},
		{"price_box", m.PriceBox},
		{"starting_price_style", m.StartingPriceStyle},
		{"special_price_style", m.SpecialPriceStyle},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s: must not be empty", field.name)
		}
	}
	return nil
}
