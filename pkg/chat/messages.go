package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zen-systems/tripmate/pkg/itinerary"
	"github.com/zen-systems/tripmate/pkg/plan"
	"github.com/zen-systems/tripmate/pkg/selection"
	"github.com/zen-systems/tripmate/pkg/update"
)

// User-facing replies.
const (
	msgGeneric        = "잠시 오류가 있었어요😭 다시 한번 말해주세요!"
	msgNoCandidates   = "아직 검색하신 장소가 없어요🤔\n먼저 가고 싶은 장소를 검색해보세요!"
	msgNothingSaved   = "아직 저장하신 장소들이 없어요🤔\n제가 추천해드리는 장소를 저장하시거나 가고 싶은 장소를 직접 입력해보세요!"
	msgDetailNotFound = "입력하신 장소를 찾을 수 없습니다😱\n정확한 장소명으로 다시 입력해주세요!"
	msgDetailSuffix   = "\n이곳이 입력하신 장소가 맞나요?\n저장하고 싶으시면 '저장할게'라고 말씀해주세요😊"
	msgNoResults      = "검색 결과가 없어요🤔\n다른 키워드로 다시 검색해보세요!"
	msgNoLocation     = "현재 위치를 알 수 없어요😅\n도시나 지역 이름과 함께 다시 검색해주세요!"
	msgPlanLocked     = "크루가 존재합니다! 일정 변경이 불가능 합니다!"
	msgPlanNotFound   = "일정을 찾을 수 없습니다."
	msgTripNotFound   = "여행 정보를 찾을 수 없어요😱\n여행을 먼저 만들어주세요!"
	msgNoPending      = "수정 대기 중인 일정이 없어요🤔\n먼저 수정하고 싶은 일정을 말씀해주세요!"
	msgInvalidChange  = "수정할 날짜나 시간을 이해하지 못했어요😅\n날짜는 YYYY-MM-DD, 시간은 HH:MM 형식으로 말씀해주세요!"
)

func savedMessage(titles []string) string {
	return fmt.Sprintf("네, 알겠습니다! %s이 저장되었습니다🥳\n\n저장하신 목적지로 최종적인 여행 계획을 원하시면 '여행 일정 만들어줘'라고 말씀해 주세요!",
		strings.Join(titles, ", "))
}

func invalidSelectionMessage(available int) string {
	return fmt.Sprintf("저장할 수 있는 번호가 없어요🤔\n목록에 있는 1~%d번 중에서 다시 말씀해주세요!", available)
}

// describe turns a handler error into the reply and a metrics label.
// Unrecognized errors become the generic apology.
func describe(err error) (string, string) {
	var invalidSel *selection.InvalidSelectionError
	var invalidChange *update.InvalidChangeError
	var parseErr *itinerary.ParseError
	var persistErr *plan.PersistenceError
	switch {
	case errors.Is(err, selection.ErrNoCandidates):
		return msgNoCandidates, "no_candidates"
	case errors.As(err, &invalidSel):
		return invalidSelectionMessage(invalidSel.Available), "invalid_selection"
	case errors.Is(err, itinerary.ErrNothingSaved):
		return msgNothingSaved, "nothing_saved"
	case errors.Is(err, plan.ErrTripNotFound):
		return msgTripNotFound, "trip_not_found"
	case errors.Is(err, plan.ErrPlanLocked):
		return msgPlanLocked, "plan_locked"
	case errors.Is(err, plan.ErrPlanNotFound):
		return msgPlanNotFound, "plan_not_found"
	case errors.Is(err, update.ErrNoPending):
		return msgNoPending, "no_pending"
	case errors.As(err, &invalidChange):
		return msgInvalidChange, "invalid_change"
	case errors.Is(err, errNoLocation):
		return msgNoLocation, "no_location"
	case errors.As(err, &parseErr):
		return msgGeneric, "itinerary_parse"
	case errors.As(err, &persistErr):
		return msgGeneric, "persistence"
	default:
		return msgGeneric, "internal"
	}
}
