package place

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatList renders numbered places for the chat reply. Numbers are 1-based
// and are what users quote back when saving.
func FormatList(places []Place) string {
	entries := make([]string, 0, len(places))
	for i, p := range places {
		var sb strings.Builder
		fmt.Fprintf(&sb, "*%d. 장소 이름: %s\n", i+1, p.Title)
		fmt.Fprintf(&sb, "    별점: %s\n", formatRating(p.Rating))
		fmt.Fprintf(&sb, "    주소: %s\n", p.Address)
		fmt.Fprintf(&sb, "    설명: %s\n", p.Description)
		if p.Price != "" {
			fmt.Fprintf(&sb, "    가격: %s\n", p.Price)
		}
		entries = append(entries, sb.String())
	}
	return strings.Join(entries, "\n")
}

// FormatDetail renders a single place.
func FormatDetail(p Place) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*장소 이름: %s\n", p.Title)
	fmt.Fprintf(&sb, "주소: %s\n", p.Address)
	fmt.Fprintf(&sb, "설명: %s\n", p.Description)
	if p.Price != "" {
		fmt.Fprintf(&sb, "    가격: %s\n", p.Price)
	}
	return sb.String()
}

func formatRating(r *float64) string {
	if r == nil {
		return "없음"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}
