package intent

// Tool describes one action offered to the classification model.
type Tool struct {
	Name        Kind
	Description string
	Properties  map[string]Property
	Required    []string
}

// Property is a single JSON-schema argument.
type Property struct {
	Type        string
	Description string
}

// Schema renders the tool parameters as a JSON-schema object.
func (t Tool) Schema() map[string]any {
	props := make(map[string]any, len(t.Properties))
	for name, p := range t.Properties {
		props[name] = map[string]any{"type": p.Type, "description": p.Description}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   t.Required,
	}
}

var searchProperties = map[string]Property{
	"userId":    {Type: "string", Description: "The user ID for the search context"},
	"tripId":    {Type: "string", Description: "The trip ID for the search context"},
	"latitude":  {Type: "number", Description: "The latitude of the location for the search context"},
	"longitude": {Type: "number", Description: "The longitude of the location for the search context"},
}

func withQuery(description string) map[string]Property {
	props := map[string]Property{"query": {Type: "string", Description: description}}
	for k, v := range searchProperties {
		props[k] = v
	}
	return props
}

// Tools returns the six actions with their argument schemas.
func Tools() []Tool {
	searchRequired := []string{"query", "userId", "tripId", "latitude", "longitude"}
	return []Tool{
		{
			Name: SearchPlaces,
			Description: "Search for various types of places based on user query, such as 'popular cafes in Barcelona'. " +
				"This function should be used for general searches where the user is looking for multiple options or recommendations.",
			Properties: withQuery("The search query for finding places. Include keywords like 'find', 'popular', 'recommend', " +
				"'cafes', 'restaurants', etc. If the query isn't in English, translate it to English."),
			Required: searchRequired,
		},
		{
			Name: SearchPlaceDetails,
			Description: "Fetch detailed information about a specific place based on the place name. " +
				"This function should be used when the user provides a specific place name and wants detailed information about it.",
			Properties: withQuery("The name of the place to get details for. If the query isn't english, translate it in english."),
			Required:   searchRequired,
		},
		{
			Name:        JustChat,
			Description: "Respond to general questions and provide information",
			Properties:  map[string]Property{"query": {Type: "string", Description: "The user's general query"}},
			Required:    []string{"query"},
		},
		{
			Name: SavePlace,
			Description: "사용자의 query에서 숫자가 있다면 숫자를 추출하여 검색 결과 중 해당 번호의 장소를 저장합니다. " +
				"사용자가 숫자와 함께, 또는 숫자 없이 '저장', '추가', '갈래' 등의 다양한 표현으로 저장을 요청할 수 있습니다.",
			Properties: map[string]Property{"query": {Type: "string",
				Description: "사용자가 숫자와 함께 또는 숫자 없이 저장 또는 추가를 요청하는 다양한 표현의 쿼리 문자열"}},
			Required: []string{"query"},
		},
		{
			Name:        SavePlan,
			Description: "저장한 장소들로 최종 여행 일정을 만들어 저장합니다.",
			Properties: map[string]Property{"query": {Type: "string",
				Description: "사용자가 여행 계획 짜줘, 여행 일정 만들어줘, 최종 일정 만들어줘, 그걸로 일정 짜줘 등 여행 관련 일정을 만들어달라는 요청하는 모든 말을 했을 때 실행"}},
			Required: []string{"query"},
		},
		{
			Name:        UpdateTripPlan,
			Description: "Update a trip plan with the given details, 사용자가 일정을 수정하고 싶다는 말을 하면 이걸로 분류해줘",
			Properties: map[string]Property{
				"userId":   {Type: "string", Description: "with the given details."},
				"tripId":   {Type: "string", Description: "with the given details."},
				"date":     {Type: "string", Description: "Date of the tripPlans you have to change this type. YYYY-MM-DD"},
				"title":    {Type: "string", Description: "Title of the tripPlans"},
				"newTitle": {Type: "string", Description: "New title for the trip plan"},
				"newDate":  {Type: "string", Description: "New date for the trip plan. YYYY-MM-DD"},
				"newTime":  {Type: "string", Description: "New time for the trip plan. HH:MM:SS"},
			},
			Required: []string{"userId", "tripId", "date", "title", "newTime"},
		},
	}
}
