package models

import (
	"strings"
	"time"
)

type ReportType string

const (
	ReportDaily    ReportType = "daily"
	ReportWeekly   ReportType = "weekly"
	ReportMonthly  ReportType = "monthly"
	ReportCustom   ReportType = "custom"
	ReportIncident ReportType = "incident"
)

func ParseReportType(s string) (ReportType, bool) {
	switch t := ReportType(strings.ToLower(strings.TrimSpace(s))); t {
	case ReportDaily, ReportWeekly, ReportMonthly, ReportCustom, ReportIncident:
		return t, true
	default:
		return "", false
	}
}

// Report is the stored record of a generated surveillance report.
type Report struct {
	ID              string     `json:"id"`
	Type            ReportType `json:"report_type"`
	Title           string     `json:"report_title"`
	DateFrom        time.Time  `json:"date_from"`
	DateTo          time.Time  `json:"date_to"`
	Summary         string     `json:"summary"`
	TotalDetections int        `json:"total_detections"`
	HighThreatCount int        `json:"high_threat_count"`
	MPAIntrusions   int        `json:"mpa_intrusions"`
	DarkVessels     int        `json:"dark_vessels"`
	AvgThreatScore  float64    `json:"avg_threat_score"`
	GeneratedBy     string     `json:"generated_by"`
	CreatedAt       time.Time  `json:"created_at"`
}
