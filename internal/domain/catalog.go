package domain

// Catalog is the fixed, ordered list of newsletter names the service
// recognizes. It is injected at startup and never mutated; its iteration
// order drives the order of emitted tag mutations and of mutation logs,
// which downstream tooling depends on.
type Catalog []string

// DefaultCatalog matches the production newsletter line-up.
var DefaultCatalog = Catalog{
	"Dev Newsletter",
	"Design Newsletter",
	"Data Science Newsletter",
}

// SubscriptionState maps every catalog name to a subscribed flag. A
// state produced by this package is always total over the catalog.
type SubscriptionState map[string]bool

// Contains reports whether name is part of the catalog.
func (c Catalog) Contains(name string) bool {
	for _, n := range c {
		if n == name {
			return true
		}
	}
	return false
}

// DecodeTags derives a subscription state from a contact's current tag
// listing. A subscription is on iff a tag with that exact name appears in
// the listing; the tag's status field is ignored because the listing
// endpoint only returns tags currently associated with the contact.
func (c Catalog) DecodeTags(tags []Tag) SubscriptionState {
	state := make(SubscriptionState, len(c))
	for _, name := range c {
		state[name] = false
		for _, tag := range tags {
			if tag.Name == name {
				state[name] = true
				break
			}
		}
	}
	return state
}

// DiffStates computes the minimal tag mutations that move a contact from
// the current state to the desired one, in catalog order.
func (c Catalog) DiffStates(current, desired SubscriptionState) []TagMutation {
	var mutations []TagMutation
	for _, name := range c {
		switch {
		case !current[name] && desired[name]:
			mutations = append(mutations, TagMutation{Name: name, Status: TagActive})
		case current[name] && !desired[name]:
			mutations = append(mutations, TagMutation{Name: name, Status: TagInactive})
		}
	}
	return mutations
}

// ActiveTags encodes the subscribed entries of a state as active tags, in
// catalog order. Used when a contact is created directly with a desired
// state, so no diff is needed.
func (c Catalog) ActiveTags(state SubscriptionState) []Tag {
	var tags []Tag
	for _, name := range c {
		if state[name] {
			tags = append(tags, Tag{Name: name, Status: TagActive})
		}
	}
	return tags
}
