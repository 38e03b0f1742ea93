package artifact

import (
	"encoding/json"
	"strconv"
)

type fieldType int

const (
	typeString fieldType = iota
	typeTime             // non-negative integer microseconds
	typeCount            // non-negative integer
	typeNumber
	typeBool
	typeObject
	typeArray
)

func (t fieldType) String() string {
	switch t {
	case typeString:
		return "a string"
	case typeTime:
		return "a non-negative integer (microseconds)"
	case typeCount:
		return "a non-negative integer"
	case typeNumber:
		return "a number"
	case typeBool:
		return "a boolean"
	case typeObject:
		return "an object"
	default:
		return "an array"
	}
}

type field struct {
	name     string
	typ      fieldType
	required bool
	// elem describes array elements that are objects; elemType describes
	// primitive array elements when elem is nil.
	elem     shape
	elemType fieldType
	// nested describes object fields.
	nested shape
}

type shape []field

func req(name string, typ fieldType) field { return field{name: name, typ: typ, required: true} }

func opt(name string, typ fieldType) field { return field{name: name, typ: typ} }

func reqList(name string, elem shape) field {
	return field{name: name, typ: typeArray, required: true, elem: elem}
}

func optList(name string, elem shape) field { return field{name: name, typ: typeArray, elem: elem} }

func optStrings(name string) field {
	return field{name: name, typ: typeArray, elemType: typeString}
}

func reqStrings(name string) field {
	return field{name: name, typ: typeArray, required: true, elemType: typeString}
}

var wordShape = shape{
	req("id", typeString),
	req("text", typeString),
	opt("normalized", typeString),
	req("startUs", typeTime),
	req("endUs", typeTime),
	opt("confidence", typeNumber),
}

var shapes = map[Kind]shape{
	KindTranscript: {
		opt("language", typeString),
		opt("durationUs", typeTime),
		reqList("words", wordShape),
		reqList("segments", shape{
			req("id", typeString),
			req("startUs", typeTime),
			req("endUs", typeTime),
			opt("text", typeString),
			optStrings("wordIds"),
			optList("words", wordShape),
			opt("confidence", typeNumber),
		}),
		opt("provider", typeString),
		opt("placeholder", typeBool),
	},
	KindCutPlan: {
		reqList("removeRanges", shape{
			req("startUs", typeTime),
			req("endUs", typeTime),
			opt("reason", typeString),
			opt("confidence", typeNumber),
			optStrings("wordIds"),
		}),
		optList("rationale", shape{
			req("rangeIndex", typeCount),
			req("summary", typeString),
		}),
		opt("provider", typeString),
		opt("model", typeString),
		opt("placeholder", typeBool),
	},
	KindTemplatePlan: {
		reqList("placements", shape{
			req("id", typeString),
			req("templateId", typeString),
			opt("category", typeString),
			req("startUs", typeTime),
			req("endUs", typeTime),
			opt("confidence", typeNumber),
			opt("content", typeObject),
			opt("rationale", typeString),
		}),
		opt("provider", typeString),
		opt("model", typeString),
		opt("placeholder", typeBool),
	},
	KindAssetSuggestions: {
		reqList("suggestions", shape{
			req("id", typeString),
			req("provider", typeString),
			req("kind", typeString),
			req("query", typeString),
			req("startUs", typeTime),
			req("endUs", typeTime),
			opt("localPath", typeString),
			opt("placementId", typeString),
			opt("confidence", typeNumber),
			opt("rationale", typeString),
		}),
		opt("provider", typeString),
		opt("placeholder", typeBool),
	},
	KindTimeline: {
		req("id", typeString),
		req("projectId", typeString),
		req("version", typeCount),
		req("status", typeString),
		req("fps", typeCount),
		req("durationUs", typeTime),
		req("sourceDurationUs", typeTime),
		opt("createdAt", typeString),
		opt("updatedAt", typeString),
		reqList("tracks", shape{
			req("id", typeString),
			req("name", typeString),
			req("kind", typeString),
			opt("order", typeCount),
			opt("locked", typeBool),
		}),
		reqList("clips", shape{
			req("clipId", typeString),
			req("trackId", typeString),
			req("clipType", typeString),
			req("startUs", typeTime),
			req("endUs", typeTime),
			req("sourceStartUs", typeTime),
			req("sourceEndUs", typeTime),
			opt("sourceRef", typeString),
			opt("meta", typeObject),
		}),
		optList("overlays", shape{
			req("overlayId", typeString),
			req("trackId", typeString),
			req("kind", typeString),
			req("refId", typeString),
			req("startUs", typeTime),
			req("endUs", typeTime),
			opt("text", typeString),
			opt("localPath", typeString),
		}),
	},
	KindProgress: {
		req("projectId", typeString),
		opt("runId", typeString),
		req("startedAt", typeString),
		optStrings("steps"),
		opt("currentStep", typeString),
		req("currentStepIndex", typeCount),
		req("totalSteps", typeCount),
		req("status", typeString),
		opt("detail", typeString),
		req("percent", typeNumber),
		req("updatedAt", typeString),
		reqStrings("completedSteps"),
		opt("stepStatuses", typeObject),
	},
}

// checkStructure decodes payload generically and checks it against the
// kind's shape. It returns false when the payload is not a JSON object.
func checkStructure(kind Kind, payload []byte, c *collector) bool {
	var root any
	if err := decodeGeneric(payload, &root); err != nil {
		c.add("", "payload is not valid JSON: %v", err)
		return false
	}
	obj, ok := root.(map[string]any)
	if !ok {
		c.add("", "payload must be a JSON object")
		return false
	}
	checkObject(obj, "", shapes[kind], c)
	return true
}

func checkObject(obj map[string]any, path string, s shape, c *collector) {
	for _, f := range s {
		value, present := obj[f.name]
		fieldPath := join(path, f.name)
		if !present || value == nil {
			if f.required {
				c.add(fieldPath, "is required")
			}
			continue
		}
		checkValue(value, fieldPath, f, c)
	}
}

func checkValue(value any, path string, f field, c *collector) {
	switch f.typ {
	case typeString:
		if _, ok := value.(string); !ok {
			c.add(path, "must be %s", f.typ)
		}
	case typeBool:
		if _, ok := value.(bool); !ok {
			c.add(path, "must be %s", f.typ)
		}
	case typeNumber:
		n, ok := value.(json.Number)
		if !ok {
			c.add(path, "must be %s", f.typ)
			return
		}
		if _, err := n.Float64(); err != nil {
			c.add(path, "must be %s", f.typ)
		}
	case typeTime, typeCount:
		if !isNonNegativeInt(value) {
			c.add(path, "must be %s, got %s", f.typ, describe(value))
		}
	case typeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			c.add(path, "must be %s", f.typ)
			return
		}
		if f.nested != nil {
			checkObject(obj, path, f.nested, c)
		}
	case typeArray:
		items, ok := value.([]any)
		if !ok {
			c.add(path, "must be %s", f.typ)
			return
		}
		for i, item := range items {
			itemPath := index(path, i)
			if f.elem != nil {
				obj, ok := item.(map[string]any)
				if !ok {
					c.add(itemPath, "must be an object")
					continue
				}
				checkObject(obj, itemPath, f.elem, c)
				continue
			}
			checkValue(item, itemPath, field{typ: f.elemType}, c)
		}
	}
}

func isNonNegativeInt(value any) bool {
	n, ok := value.(json.Number)
	if !ok {
		return false
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	return err == nil && i >= 0
}

func describe(value any) string {
	switch v := value.(type) {
	case json.Number:
		return v.String()
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return "null"
	}
}
