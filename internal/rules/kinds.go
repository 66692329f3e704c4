package rules

import (
	"strings"

	"github.com/Dv04/aixavier/internal/events"
)

// Kind identifies a rule handler.
type Kind int

const (
	KindUnknown Kind = iota
	KindLineCrossing
	KindStaticObjectDwell
	KindActionScore
	KindPoseVelocityDrop
	KindProneDwell
	KindFRSMatch
	KindBlurDetect
	KindPoseCollapse
	KindPoseGesture
	KindPosePhoneUsage
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindLineCrossing:      "line_crossing",
	KindStaticObjectDwell: "static_object_dwell",
	KindActionScore:       "action_score",
	KindPoseVelocityDrop:  "pose_velocity_drop",
	KindProneDwell:        "prone_dwell",
	KindFRSMatch:          "frs_match",
	KindBlurDetect:        "blur_detect",
	KindPoseCollapse:      "pose_collapse",
	KindPoseGesture:       "pose_gesture",
	KindPosePhoneUsage:    "pose_phone_usage",
}

var kindAliases = map[string]Kind{
	"identity_match": KindFRSMatch,
}

// ParseKind maps a configured rule type onto a Kind. Unrecognised names
// return KindUnknown.
func ParseKind(name string) Kind {
	name = strings.ToLower(strings.TrimSpace(name))
	if k, ok := kindAliases[name]; ok {
		return k
	}
	for k, n := range kindNames {
		if n == name && k != KindUnknown {
			return k
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindUnknown]
}

// handlerFunc evaluates one rule against one record and returns the payload
// of the derived event when it fires.
type handlerFunc func(e *Engine, uc *UseCase, p Params, r events.Record) (map[string]any, bool)

// handlers is the dispatch table. Kinds without an entry are skipped.
var handlers = map[Kind]handlerFunc{
	KindLineCrossing:      handleLineCrossing,
	KindStaticObjectDwell: handleStaticObjectDwell,
	KindActionScore:       handleActionScore,
	KindPoseVelocityDrop:  handlePoseVelocityDrop,
	KindProneDwell:        handleProneDwell,
	KindFRSMatch:          handleFRSMatch,
	KindBlurDetect:        handleBlurDetect,
	KindPoseCollapse:      handlePoseCollapse,
	KindPoseGesture:       handlePoseGesture,
	KindPosePhoneUsage:    handlePosePhoneUsage,
}

// Handled reports whether k has a registered handler.
func (k Kind) Handled() bool {
	_, ok := handlers[k]
	return ok
}
