package domain

import "strconv"

// Company is reference data for one filer in the tracked universe.
// Created during universe setup; read-only from the pipeline's
// perspective apart from classification updates.
type Company struct {
	// CIK is the primary identity (Central Index Key).
	CIK string

	// Ticker is the stock ticker.
	Ticker string

	// Name is the company display name.
	Name string

	// SICCode is the industry classification code from the filing data.
	SICCode string

	// Sector is derived from SICCode via SectorFromSIC.
	Sector string

	// Active marks companies currently tracked.
	Active bool
}

// sicRange maps an inclusive SIC code range onto a sector label.
type sicRange struct {
	lo, hi int
	sector string
}

// SIC division ranges per the standard industrial classification.
var sicRanges = []sicRange{
	{100, 999, "Agriculture"},
	{1000, 1499, "Mining"},
	{1500, 1799, "Construction"},
	{2000, 3999, "Manufacturing"},
	{4000, 4999, "Transportation & Utilities"},
	{5000, 5199, "Wholesale Trade"},
	{5200, 5999, "Retail Trade"},
	{6000, 6799, "Finance, Insurance & Real Estate"},
	{7000, 8999, "Services"},
	{9100, 9729, "Public Administration"},
}

// SectorFromSIC derives a sector label from an industry classification
// code. Unknown or unparsable codes map to "Unclassified".
func SectorFromSIC(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return "Unclassified"
	}
	for _, r := range sicRanges {
		if n >= r.lo && n <= r.hi {
			return r.sector
		}
	}
	return "Unclassified"
}
