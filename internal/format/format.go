// Package format renders file metadata for display: sizes, relative times and
// the icon picked for a media type.
package format

import (
	"fmt"
	"strings"
	"time"
)

const bytesPerMB = 1024 * 1024

// FileSize renders bytes as megabytes with one decimal, e.g. "2.5 MB".
func FileSize(bytes int64) string {
	return fmt.Sprintf("%.1f MB", float64(bytes)/bytesPerMB)
}

// TimeAgo renders the distance between t and now in whole minutes, hours or
// days. Timestamps in the future count as "0 minutes ago".
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}

	minutes := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case minutes < 60:
		return plural(minutes, "minute") + " ago"
	case hours < 24:
		return plural(hours, "hour") + " ago"
	default:
		return plural(days, "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Icon names understood by the presentation layer.
const (
	IconImage        = "image"
	IconText         = "file-text"
	IconSpreadsheet  = "file-spreadsheet"
	IconPresentation = "file-presentation"
	IconFile         = "file"
)

type iconRule struct {
	match func(string) bool
	icon  string
	color string
}

func contains(subs ...string) func(string) bool {
	return func(typ string) bool {
		for _, s := range subs {
			if strings.Contains(typ, s) {
				return true
			}
		}
		return false
	}
}

// First match wins. OOXML spreadsheets contain "officedocument" and so resolve
// to the document icon.
var iconRules = []iconRule{
	{func(t string) bool { return strings.HasPrefix(t, "image/") }, IconImage, "text-blue-600 bg-blue-100"},
	{func(t string) bool { return t == "application/pdf" }, IconText, "text-red-600 bg-red-100"},
	{contains("document", "msword"), IconText, "text-blue-600 bg-blue-100"},
	{contains("spreadsheet", "excel"), IconSpreadsheet, "text-green-600 bg-green-100"},
	{contains("presentation", "powerpoint"), IconPresentation, "text-orange-600 bg-orange-100"},
}

const defaultIconColor = "text-gray-600 bg-gray-100"

// Icon picks the icon name for a media type.
func Icon(typ string) string {
	for _, r := range iconRules {
		if r.match(typ) {
			return r.icon
		}
	}
	return IconFile
}

// IconColor picks the colour classes paired with Icon.
func IconColor(typ string) string {
	for _, r := range iconRules {
		if r.match(typ) {
			return r.color
		}
	}
	return defaultIconColor
}

// TypeLabel shortens a media type for the "Supported: ..." hint.
func TypeLabel(typ string) string {
	switch {
	case strings.HasPrefix(typ, "image/"):
		return strings.ToUpper(strings.TrimPrefix(typ, "image/"))
	case typ == "application/pdf":
		return "PDF"
	case strings.Contains(typ, "document"), strings.Contains(typ, "msword"):
		return "DOC"
	default:
		return typ
	}
}

// AcceptedTypes joins the labels of every accepted type.
func AcceptedTypes(types []string) string {
	labels := make([]string, len(types))
	for i, t := range types {
		labels[i] = TypeLabel(t)
	}
	return strings.Join(labels, ", ")
}
