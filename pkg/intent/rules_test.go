package intent

import (
	"context"
	"testing"
)

func TestRuleClassifierMatch(t *testing.T) {
	rc := NewRuleClassifier(nil)
	tests := []struct {
		query string
		want  Kind
	}{
		{"바르셀로나 맛집 추천해줘", SearchPlaces},
		{"find popular cafes in Barcelona", SearchPlaces},
		{"사그라다 파밀리아 정보 알려줘", SearchPlaceDetails},
		{"tell me about Park Guell", SearchPlaceDetails},
		{"1번이랑 3번 저장할게", SavePlace},
		{"save 2", SavePlace},
		{"저장한 장소로 여행 일정 만들어줘", SavePlan},
		{"please plan my trip", SavePlan},
		{"안녕! 오늘 날씨 어때?", JustChat},
		{"what's the address format?", JustChat},
		{"savestate please", JustChat},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := rc.Match(tt.query); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestRuleClassifierNeverUpdates(t *testing.T) {
	rc := NewRuleClassifier(map[Kind][]string{UpdateTripPlan: {"수정"}, SavePlace: {"저장"}})
	if got := rc.Match("일정 수정해줘"); got != JustChat {
		t.Errorf("Match() = %q, want just_chat", got)
	}
}

func TestRuleClassifierFillsSearchArgs(t *testing.T) {
	lat, lon := 41.38, 2.17
	d, err := NewRuleClassifier(nil).Classify(context.Background(), Input{
		Query: "recommend tapas bars", UserID: "u1", TripID: "t1", Latitude: &lat, Longitude: &lon,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != SearchPlaces || d.Search == nil {
		t.Fatalf("decision = %+v", d)
	}
	if d.Search.Query != "recommend tapas bars" || *d.Search.Latitude != lat || d.Source != "rules" {
		t.Errorf("search args = %+v", d.Search)
	}
}

func TestContainsTrigger(t *testing.T) {
	tests := []struct {
		prompt, trigger string
		want            bool
	}{
		{"save it", "save", true},
		{"unsaved", "save", false},
		{"saved and save", "save", true},
		{"저장할게", "저장", true},
		{"address", "add", false},
	}
	for _, tt := range tests {
		if got := containsTrigger(tt.prompt, tt.trigger); got != tt.want {
			t.Errorf("containsTrigger(%q, %q) = %v, want %v", tt.prompt, tt.trigger, got, tt.want)
		}
	}
}
