package graph

import (
	"context"
	"fmt"
	"time"

	"podgraph/pkg/common"
	"podgraph/pkg/store"
)

// Relationship labels with no table direction. Edges with these labels are
// written between lexicographically ordered vertex ids so observations in
// either order converge on a single edge.
const (
	RelationSameCategory = "same_category"
	RelationCoOccurs     = "co_occurs"
)

type categoryPair struct {
	from string
	to   string
}

// relationshipTable is the closed mapping from an ordered category pair to
// the semantic relationship label. It is the single source of truth for
// relationship semantics; no other code may special-case a category pair.
// Reads as: a <from> entity --label--> a <to> entity.
var relationshipTable = map[categoryPair]string{
	{"Person", "Organization"}: "works_for",
	{"Person", "Location"}:     "resides_in",
	{"Person", "PersonType"}:   "has_title",
	{"Person", "Event"}:        "organized_event",
	{"Person", "Product"}:      "uses_product",
	{"Person", "Skill"}:        "has_skill",
	{"Person", "Address"}:      "lives_at",
	{"Person", "PhoneNumber"}:  "has_phone_number",
	{"Person", "Email"}:        "has_email",
	{"Person", "URL"}:          "has_website",
	{"Person", "IP"}:           "last_seen_at_ip",
	{"Person", "DateTime"}:     "born_on",
	{"Person", "Quantity"}:     "has_age",

	{"Organization", "Person"}:      "employs",
	{"Organization", "Location"}:    "based_in",
	{"Organization", "Product"}:     "produces",
	{"Organization", "Event"}:       "sponsors",
	{"Organization", "Address"}:     "headquartered_at",
	{"Organization", "PhoneNumber"}: "has_contact_number",
	{"Organization", "Email"}:       "has_contact_email",
	{"Organization", "URL"}:         "official_website",
	{"Organization", "DateTime"}:    "founded_on",
	{"Organization", "Quantity"}:    "has_employee_count",
	{"Organization", "IP"}:          "owns_ip_range",
	{"Organization", "Skill"}:       "requires_skill",

	{"Event", "Location"}:     "occurs_in",
	{"Event", "Person"}:       "attended_by",
	{"Event", "Organization"}: "hosted_by",
	{"Event", "Product"}:      "featured_product",
	{"Event", "DateTime"}:     "scheduled_for",
	{"Event", "Address"}:      "held_at_address",
	{"Event", "URL"}:          "has_event_page",
	{"Event", "Quantity"}:     "expected_attendees",

	{"Product", "Organization"}: "manufactured_by",
	{"Product", "Location"}:     "sold_in",
	{"Product", "DateTime"}:     "released_on",
	{"Product", "Quantity"}:     "has_price",
	{"Product", "URL"}:          "has_product_page",
	{"Product", "Skill"}:        "requires_skill_to_operate",

	{"Skill", "PersonType"}:        "skill_for_role",
	{"Address", "Location"}:        "is_in_city_or_country",
	{"PersonType", "Organization"}: "role_within_organization",
}

func init() {
	for pair := range relationshipTable {
		if !common.KnownCategory(pair.from) || !common.KnownCategory(pair.to) {
			panic(fmt.Sprintf("graph: relationship table references unknown category pair %s-%s", pair.from, pair.to))
		}
	}
}

// DetermineRelationshipType selects the relationship label for two entities
// observed together in one document. It is a pure, total function: entities
// sharing a category map to same_category, otherwise the closed table is
// consulted for the pair in both orders, and any remaining pair falls back
// to the generic co_occurs.
func DetermineRelationshipType(a, b common.Entity) string {
	if a.Category == b.Category {
		return RelationSameCategory
	}
	if label, ok := relationshipTable[categoryPair{a.Category, b.Category}]; ok {
		return label
	}
	if label, ok := relationshipTable[categoryPair{b.Category, a.Category}]; ok {
		return label
	}
	return RelationCoOccurs
}

// relationshipEndpoints resolves the edge direction for a pair. A forward
// table hit keeps the given order, a reverse hit flips it so the label reads
// in table direction, and symmetric labels order endpoints by vertex id.
func relationshipEndpoints(a, b common.Entity, label string) (string, string) {
	sourceID := EntityVertexID(a.Text)
	targetID := EntityVertexID(b.Text)

	switch label {
	case RelationSameCategory, RelationCoOccurs:
		if sourceID > targetID {
			sourceID, targetID = targetID, sourceID
		}
	default:
		if _, forward := relationshipTable[categoryPair{a.Category, b.Category}]; !forward {
			sourceID, targetID = targetID, sourceID
		}
	}

	return sourceID, targetID
}

// CreateSemanticRelationship infers the relationship label for two canonical
// entities co-occurring in a document and creates the labeled edge between
// their vertices if it does not exist yet. The first-seen document id and
// timestamp are attached at creation only; later co-occurrences are no-ops.
// Generic co_occurs relationships are skipped unless the client was
// configured to persist them.
func (g *GraphClient) CreateSemanticRelationship(ctx context.Context, a, b common.Entity, documentID string) error {
	label := DetermineRelationshipType(a, b)
	if label == RelationCoOccurs && !g.persistCoOccurrences {
		return nil
	}

	sourceID, targetID := relationshipEndpoints(a, b, label)

	query := fmt.Sprintf(
		"g.V('%s').outE('%s').where(inV().hasId('%s')).fold().coalesce(unfold(),"+
			"addE('%s').to(g.V('%s'))"+
			".property('firstSeenIn','%s')"+
			".property('createdAt','%s'))",
		sourceID,
		label,
		targetID,
		label,
		targetID,
		store.EscapeString(documentID),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err := g.execute(ctx, query); err != nil {
		return fmt.Errorf("create %s relationship %q -> %q: %w", label, a.Text, b.Text, err)
	}

	return nil
}
