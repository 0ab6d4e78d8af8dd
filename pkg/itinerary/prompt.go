package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/tripmate/pkg/place"
	"github.com/zen-systems/tripmate/pkg/plan"
)

// BuildPrompt asks for a day-by-day schedule over the trip's dates using
// only the saved places.
func BuildPrompt(trip plan.Trip, saved []place.Place, directive string) (string, error) {
	data, err := json.Marshal(saved)
	if err != nil {
		return "", fmt.Errorf("encode saved places: %w", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s부터 %s까지 다음 장소들만 포함한 상세한 여행 일정을 만들어줘.\n", trip.StartDate, trip.EndDate)
	fmt.Fprintf(&sb, "장소 데이터: %s\n", data)
	sb.WriteString("이 데이터만을 모두 사용해서 모든 날짜에 관광지, 레스토랑, 카페가 균형있게 포함되게 짜줘.\n")
	if directive != "" {
		fmt.Fprintf(&sb, "되도록 %s 니까 사용자의 성향에 맞춰서 짜줘.\n", directive)
	}
	sb.WriteString("같은 장소는 여러 일정을 만들지는 말아줘. 되도록 식사시간 그러니까 12시, 18시에는 식당이나 카페에 방문하게 해줘.\n")
	sb.WriteString("시간은 시작 시간만 HH:MM:SS 형태로, 날짜는 YYYY-MM-DD 형태로 뽑아줘. description은 절대 생략하지 마.\n")
	sb.WriteString("title은 장소에서 할 일을 알려줘. 예를 들어 에펠탑 관광.\n")
	sb.WriteString("date와 time이 null이 아닌 장소는 그 날짜와 시간으로 일정을 짜줘.\n")
	fmt.Fprintf(&sb, "%s부터 %s까지 모든 날짜에 일정이 있어야 해. 장소가 부족해도 날짜를 비워두지 말고 주어진 장소를 분배해줘.\n", trip.StartDate, trip.EndDate)
	sb.WriteString("다른 설명 없이 다음 필드를 가진 JSON 배열만 출력해줘: title, date, time, place, address, latitude, longitude, description")
	return sb.String(), nil
}

// MemoPrompt asks for a short packing and preparation memo for the places.
func MemoPrompt(places []string) string {
	return fmt.Sprintf("다음 장소들을 방문하는 여행을 위해 챙길 준비물과 주의사항을 짧은 메모로 정리해줘: %s", strings.Join(places, ", "))
}

// NarrativePrompt asks for a conversational description of the schedule.
func NarrativePrompt(schedule string) string {
	return schedule + "\n이걸 상세하게 설명해서 답변해줘 챗봇이 일정을 만들어준 것처럼 예를 들어 바르셀로나 여행 일정을 완성했어요! 1일차 - 이런식으로"
}

// RenderSchedule formats plans day by day without a model.
func RenderSchedule(plans []plan.Plan) string {
	var sb strings.Builder
	sb.WriteString("여행 일정을 완성했어요!\n")
	day, current := 0, ""
	for _, p := range plans {
		if p.Date != current {
			day++
			current = p.Date
			fmt.Fprintf(&sb, "\n%d일차 - %s\n", day, p.Date)
		}
		fmt.Fprintf(&sb, "%s %s (%s)\n", p.Time[:min(5, len(p.Time))], p.Title, p.Place)
	}
	return strings.TrimRight(sb.String(), "\n")
}
