package promrule

// SkipReason describes why part of a document was not visited.
type SkipReason string

const (
	SkipNoItems  SkipReason = "missing items"
	SkipNoGroups SkipReason = "missing spec.groups"
	SkipNoRules  SkipReason = "missing rules"
)

// Location identifies a rule within a [Document].
type Location struct {
	Namespace string
	Name      string
	// Resource is the namespaced name of the resource, see
	// [Object.GetNamespacedName].
	Resource string
	Group    string
	Item      int
	GroupIdx  int
	RuleIdx   int
}

// Visitor receives every rule of a [Document] in document order.
type Visitor interface {
	// VisitRule is called once per rule.
	VisitRule(loc Location, rule Rule)
	// SkipBranch is called when a level of the document does not have the
	// expected shape. The walk continues with the next sibling.
	SkipBranch(loc Location, reason SkipReason)
}

// Walk visits every rule in every group in every item of the document,
// item-major, then group, then rule. Malformed branches are reported to
// the visitor and skipped.
func Walk(doc Document, v Visitor) {
	items, ok := doc.Items()
	if !ok {
		v.SkipBranch(Location{Item: -1, GroupIdx: -1, RuleIdx: -1}, SkipNoItems)

		return
	}

	for i, item := range items {
		obj := item.Object()
		loc := Location{
			Item:      i,
			GroupIdx:  -1,
			RuleIdx:   -1,
			Namespace: obj.GetNamespace(),
			Name:      obj.GetName(),
			Resource:  obj.GetNamespacedName(),
		}

		groups, ok := item.Groups()
		if !ok {
			v.SkipBranch(loc, SkipNoGroups)

			continue
		}

		for j, group := range groups {
			loc.GroupIdx = j
			loc.RuleIdx = -1
			loc.Group = group.Name()

			rules, ok := group.Rules()
			if !ok {
				v.SkipBranch(loc, SkipNoRules)

				continue
			}

			for k, rule := range rules {
				loc.RuleIdx = k
				v.VisitRule(loc, rule)
			}
		}
	}
}

// VisitorFuncs adapts plain functions to a [Visitor]. Nil fields are
// ignored.
type VisitorFuncs struct {
	Rule func(loc Location, rule Rule)
	Skip func(loc Location, reason SkipReason)
}

func (f VisitorFuncs) VisitRule(loc Location, rule Rule) {
	if f.Rule != nil {
		f.Rule(loc, rule)
	}
}

func (f VisitorFuncs) SkipBranch(loc Location, reason SkipReason) {
	if f.Skip != nil {
		f.Skip(loc, reason)
	}
}
