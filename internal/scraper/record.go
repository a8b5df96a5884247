// internal/scraper/record.go
package scraper

import "fmt"

// Sentinels used for fields the page did not provide
const (
	NotAvailable      = "N/A"
	NotApplicable     = "-"
	NoDayDescription  = "No description available"
	itineraryDayLabel = "วันที่ %d"
)

// Duration is the trip length as printed on the page
type Duration struct {
	Days   string `json:"วัน"`
	Nights string `json:"คืน"`
}

// ItineraryDay is a single-key mapping from "วันที่ N" to that day's topic
type ItineraryDay map[string]string

// TourRecord is the document returned for one tour. Field order is the
// order of keys in the JSON output.
type TourRecord struct {
	ProgramCode   string         `json:"รหัสโปรแกรม"`
	Name          string         `json:"ชื่อทัวร์"`
	City          string         `json:"เมือง"`
	Duration      Duration       `json:"ระยะเวลา"`
	StartingPrice string         `json:"ราคานั้นเริ่มต้น"`
	SpecialPrice  string         `json:"ราคาพิเศษ"`
	Highlight     string         `json:"เที่ยว"`
	Shopping      string         `json:"ช้อปปิ้ง"`
	Special       string         `json:"พิเศษ"`
	Hotel         string         `json:"โรงแรม"`
	Airline       string         `json:"สายการบิน"`
	Itinerary     []ItineraryDay `json:"กำหนดการ"`
	TourURL       string         `json:"tour_url"`
}

// NewTourRecord returns a record with every field at its default
func NewTourRecord(tourURL string) *TourRecord {
	return &TourRecord{
		ProgramCode:   NotAvailable,
		Name:          NotAvailable,
		City:          NotAvailable,
		Duration:      Duration{Days: NotAvailable, Nights: NotAvailable},
		StartingPrice: NotAvailable,
		SpecialPrice:  NotAvailable,
		Highlight:     NotAvailable,
		Shopping:      NotApplicable,
		Special:       NotApplicable,
		Hotel:         NotApplicable,
		Airline:       NotAvailable,
		Itinerary:     []ItineraryDay{},
		TourURL:       tourURL,
	}
}

// AddDay appends the next itinerary day, numbered from 1. An empty
// description is kept as is.
func (r *TourRecord) AddDay(description string) {
	key := fmt.Sprintf(itineraryDayLabel, len(r.Itinerary)+1)
	r.Itinerary = append(r.Itinerary, ItineraryDay{key: description})
}
