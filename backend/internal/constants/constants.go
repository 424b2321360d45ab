package constants

// Fact slot constants
const (
	// FactSlotCount is the fixed number of fact slots per contact.
	// Slot numbers 1..FactSlotCount are part of the persisted format.
	FactSlotCount = 10

	// DefaultFactType is the category given to facts added without one
	DefaultFactType = "general"
)

// Fact categories callers commonly use. The set is open; these are the
// ones advertised in tool descriptions.
const (
	FactTypeRelationship = "relationship"
	FactTypePersonal     = "personal"
	FactTypeProfessional = "professional"
	FactTypeInterest     = "interest"
	FactTypeContact      = "contact"
	FactTypeBackground   = "background"
	FactTypePreference   = "preference"
	FactTypeSkill        = "skill"
	FactTypeHealth       = "health"
)

// KnownFactTypes lists the advertised fact categories, default last
var KnownFactTypes = []string{
	FactTypeRelationship,
	FactTypePersonal,
	FactTypeProfessional,
	FactTypeInterest,
	FactTypeContact,
	FactTypeBackground,
	FactTypePreference,
	FactTypeSkill,
	FactTypeHealth,
	DefaultFactType,
}

// Graph node labels. Labels are open strings; these are the common ones.
const (
	LabelPerson       = "Person"
	LabelPlace        = "Place"
	LabelOrganization = "Organization"
	LabelEvent        = "Event"
	LabelActivity     = "Activity"
	LabelDate         = "Date"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

// Property keys set by the store itself on mirrored nodes
const (
	PropertyContactID = "contact_id"
	PropertyName      = "name"
)
