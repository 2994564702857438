// Package sizes converts shoe size labels between sizing systems.
package sizes

import (
	"strconv"

	"storefront-service/internal/domain"
)

// Converter maps a size label from one system to another.
// ok is false when no mapping exists; callers then keep the original label.
type Converter interface {
	Convert(value string, from, to domain.SizeChartType, gender domain.Gender) (string, bool)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(value string, from, to domain.SizeChartType, gender domain.Gender) (string, bool)

func (f ConverterFunc) Convert(value string, from, to domain.SizeChartType, gender domain.Gender) (string, bool) {
	return f(value, from, to, gender)
}

// Table is the default converter. UK is the pivot: every label is first converted to UK,
// then to the target. IND labels equal UK labels.
type Table struct{}

// chart maps a UK size onto its EU and US equivalents for one segment.
type chart struct {
	ukToEU   map[float64]float64
	usOffset float64
}

var charts = map[domain.Gender]chart{
	domain.GenderMen: {
		ukToEU:   map[float64]float64{6: 40, 7: 41, 8: 42, 9: 43, 10: 44, 11: 45},
		usOffset: 1,
	},
	domain.GenderWomen: {
		ukToEU:   map[float64]float64{3: 36, 4: 37, 5: 38, 6: 39, 7: 40, 8: 41},
		usOffset: 2,
	},
	domain.GenderKids: {
		ukToEU:   map[float64]float64{10: 28, 11: 29, 12: 30, 13: 31, 1: 33, 2: 34},
		usOffset: 0.5,
	},
}

func (Table) Convert(value string, from, to domain.SizeChartType, gender domain.Gender) (string, bool) {
	if from == to {
		return value, true
	}
	n, err := strconv.ParseFloat(domain.NormalizeSizeLabel(value), 64)
	if err != nil {
		return "", false
	}
	c, ok := charts[gender]
	if !ok {
		c = charts[domain.GenderMen]
	}
	uk, ok := c.toUK(n, from)
	if !ok {
		return "", false
	}
	out, ok := c.fromUK(uk, to)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(out, 'f', -1, 64), true
}

func (c chart) toUK(n float64, from domain.SizeChartType) (float64, bool) {
	switch from {
	case domain.ChartUK, domain.ChartIND:
		return n, true
	case domain.ChartUS:
		return n - c.usOffset, true
	case domain.ChartEU:
		for uk, eu := range c.ukToEU {
			if eu == n {
				return uk, true
			}
		}
	}
	return 0, false
}

func (c chart) fromUK(uk float64, to domain.SizeChartType) (float64, bool) {
	switch to {
	case domain.ChartUK, domain.ChartIND:
		return uk, true
	case domain.ChartUS:
		return uk + c.usOffset, true
	case domain.ChartEU:
		eu, ok := c.ukToEU[uk]
		return eu, ok
	}
	return 0, false
}
