package schema

// DefaultMaxItems caps arrays whose schema sets no maxItems.
const DefaultMaxItems = 1000

// ArrayBounds holds the item counts shared by the template and layout
// builders so live controls and layout items always line up.
type ArrayBounds struct {
	MinItems   int  `json:"minItems"`
	MaxItems   int  `json:"maxItems"`
	TupleItems int  `json:"tupleItems"`
	ListItems  int  `json:"listItems"`
	HasList    bool `json:"hasList"`
}

// BoundsInput carries what ComputeArrayBounds needs beyond the schema.
type BoundsInput struct {
	ValueLen  int
	Required  bool
	Recursive bool
}

// ComputeArrayBounds derives the tuple and initial list counts of an array
// schema. Tuple slots are capped by maxItems. A required array without
// minItems gets minItems 1. A pure list shows at least one item unless its
// slot is a recursion point, which only materializes items present in data.
func ComputeArrayBounds(node map[string]any, in BoundsInput) ArrayBounds {
	b := ArrayBounds{MaxItems: DefaultMaxItems}
	if n, ok := intKeyword(node, "maxItems"); ok && n >= 0 {
		b.MaxItems = n
	}
	if n, ok := intKeyword(node, "minItems"); ok && n > 0 {
		b.MinItems = n
	}
	if b.MinItems == 0 && in.Required {
		b.MinItems = 1
	}
	pureList := false
	switch items := node["items"].(type) {
	case []any:
		b.TupleItems = len(items)
		if _, ok := node["additionalItems"].(map[string]any); ok {
			b.HasList = true
		}
	case map[string]any:
		pureList = true
		b.HasList = true
	}
	if b.TupleItems >= b.MaxItems {
		b.TupleItems = b.MaxItems
		b.HasList = false
		return b
	}
	if !b.HasList {
		return b
	}
	list := in.ValueLen - b.TupleItems
	if !in.Recursive {
		if pureList && list < 1 {
			list = 1
		}
		if need := b.MinItems - b.TupleItems; list < need {
			list = need
		}
	}
	if room := b.MaxItems - b.TupleItems; list > room {
		list = room
	}
	if list < 0 {
		list = 0
	}
	b.ListItems = list
	return b
}

// CanAdd reports whether another list item fits.
func (b ArrayBounds) CanAdd(current int) bool {
	return b.HasList && current < b.MaxItems
}

func intKeyword(node map[string]any, key string) (int, bool) {
	switch v := node[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
