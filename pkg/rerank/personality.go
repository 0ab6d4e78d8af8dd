// Package rerank orders candidate places by a user's travel personality.
package rerank

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Personality maps a preference category to one of its two labels,
// e.g. {"money": "money2", "photo": "photo2"}.
type Personality map[string]string

// Categories of the fixed preference vocabulary.
var Categories = []string{"money", "food", "transport", "schedule", "photo"}

var searchPhrases = map[string]string{
	"money1":     "이왕 여행을 간 김에 가격이 비싸고 좋은 곳으로 알려줘",
	"money2":     "여행 경비를 아껴야해 가격이 저렴한 곳으로 알려줘",
	"food1":      "맛집 웨이팅 기다릴 수 있어 평점이 높은 곳 위주로",
	"food2":      "그냥 끌리는대로 다닐래 평점 낮아도 상관 없어",
	"transport1": "경도 위도가 가까운 곳으로 알려줘",
	"transport2": "좀 멀어도 괜찮아",
	"schedule1":  "즐기면서 천천히 다니고 싶어",
	"schedule2":  "일정 알차게 돌아다니고 싶어",
	"photo1":     "사진은 중요하지 않아",
	"photo2":     "포토스팟 위주로 알려줘",
}

var itineraryPhrases = map[string]string{
	"transport1": "관광지들끼리 경도 위도가 가까운 곳으로 알려줘",
	"transport2": "관광지들끼리 경도 위도가 좀 멀어도 괜찮아",
	"schedule1":  "여행 스케줄을 즐기면서 천천히 다니고 싶어",
	"schedule2":  "여행 스케줄 일정 알차게 돌아다니고 싶어",
}

// ParsePersonality decodes the JSON object stored for a user. An empty
// string is an empty personality.
func ParsePersonality(raw string) (Personality, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Personality{}, nil
	}
	var p Personality
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("invalid personality: %w", err)
	}
	return p, nil
}

// Labels returns the known labels in category order, skipping unknown ones.
func (p Personality) Labels() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return categoryRank(keys[i]) < categoryRank(keys[j]) ||
			(categoryRank(keys[i]) == categoryRank(keys[j]) && keys[i] < keys[j])
	})

	var labels []string
	for _, k := range keys {
		if _, ok := searchPhrases[p[k]]; ok {
			labels = append(labels, p[k])
		}
	}
	return labels
}

// Directive builds the ranking instruction for search results. It is empty
// when the personality carries no known label.
func Directive(p Personality) string {
	labels := p.Labels()
	if len(labels) == 0 {
		return ""
	}
	phrases := make([]string, len(labels))
	for i, l := range labels {
		phrases[i] = searchPhrases[l]
	}
	return "사용자의 성향: " + strings.Join(phrases, " ")
}

// ItineraryDirective describes pace and travel distance preferences for
// schedule generation.
func ItineraryDirective(p Personality) string {
	transport := itineraryPhrases[p["transport"]]
	schedule := itineraryPhrases[p["schedule"]]
	if transport == "" && schedule == "" {
		return ""
	}
	return fmt.Sprintf("사용자의 성향은 %s, %s", transport, schedule)
}

func categoryRank(c string) int {
	for i, name := range Categories {
		if name == c {
			return i
		}
	}
	return len(Categories)
}
