// Package intent classifies a conversational turn into one of the assistant's
// actions.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind names an action the assistant can take.
type Kind string

const (
	SearchPlaces       Kind = "search_places"
	SearchPlaceDetails Kind = "search_place_details"
	JustChat           Kind = "just_chat"
	SavePlace          Kind = "save_place"
	SavePlan           Kind = "save_plan"
	UpdateTripPlan     Kind = "update_trip_plan"
	// Unclassified is a reply that selected no action.
	Unclassified Kind = ""
)

// Kinds lists every action in menu order.
var Kinds = []Kind{SearchPlaces, SearchPlaceDetails, JustChat, SavePlace, SavePlan, UpdateTripPlan}

// Valid reports whether k is one of the six actions.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsSearch reports whether k produces geo results.
func (k Kind) IsSearch() bool {
	return k == SearchPlaces || k == SearchPlaceDetails
}

// SearchArgs are the arguments of both search actions.
type SearchArgs struct {
	Query     string   `json:"query" validate:"required"`
	UserID    string   `json:"userId"`
	TripID    string   `json:"tripId"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// QueryArgs are the arguments of just_chat, save_place and save_plan.
type QueryArgs struct {
	Query string `json:"query"`
}

// UpdateArgs are the arguments of update_trip_plan.
type UpdateArgs struct {
	UserID   string `json:"userId"`
	TripID   string `json:"tripId"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Title    string `json:"title" validate:"required"`
	NewTitle string `json:"newTitle"`
	NewDate  string `json:"newDate" validate:"omitempty,datetime=2006-01-02"`
	NewTime  string `json:"newTime" validate:"required"`
}

// Decision is the classifier's verdict. Exactly one argument field is set
// for a valid Kind; Unclassified carries only Reply.
type Decision struct {
	Kind   Kind
	Search *SearchArgs
	Query  *QueryArgs
	Update *UpdateArgs
	// Reply is the model's own text when it chose no action.
	Reply string
	// Source names the classifier that decided.
	Source string
}

// IntentParseError means the classifier picked an action whose arguments
// could not be decoded or validated.
type IntentParseError struct {
	Intent    string
	Arguments string
	Err       error
}

func (e *IntentParseError) Error() string {
	return fmt.Sprintf("intent %q: bad arguments: %v", e.Intent, e.Err)
}

func (e *IntentParseError) Unwrap() error {
	return e.Err
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseCall decodes the arguments of a selected function.
func ParseCall(name, arguments string) (*Decision, error) {
	kind := Kind(strings.TrimSpace(name))
	if !kind.Valid() {
		return nil, &IntentParseError{Intent: name, Arguments: arguments, Err: fmt.Errorf("unknown function")}
	}
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	d := &Decision{Kind: kind}
	var target any
	switch kind {
	case SearchPlaces, SearchPlaceDetails:
		d.Search = &SearchArgs{}
		target = d.Search
	case UpdateTripPlan:
		d.Update = &UpdateArgs{}
		target = d.Update
	default:
		d.Query = &QueryArgs{}
		target = d.Query
	}

	if err := json.Unmarshal([]byte(arguments), target); err != nil {
		return nil, &IntentParseError{Intent: name, Arguments: arguments, Err: err}
	}
	if err := validate.Struct(target); err != nil {
		return nil, &IntentParseError{Intent: name, Arguments: arguments, Err: err}
	}
	return d, nil
}
