package profile

// VisibleBrokers narrows users to the broker profiles the actor may see in the
// broker-management view. The rules mirror application visibility: an admin
// sees every broker, a team manager or broker admin sees brokers sharing its
// company name, and a plain broker sees only itself.
//
// The filter only ever narrows; no search or sort applied afterwards can widen
// the result.
func VisibleBrokers(actor User, users []User) []User {
	brokers := make([]User, 0, len(users))
	for _, u := range users {
		if u.Role != RoleBroker {
			continue
		}
		switch actor.Tier() {
		case TierAdmin:
			brokers = append(brokers, u)
		case TierCompany:
			// Equality of empty companies is intentional: an actor without a
			// company matches only brokers that also have none.
			if u.Company() == actor.Company() {
				brokers = append(brokers, u)
			}
		default:
			if u.ID == actor.ID {
				brokers = append(brokers, u)
			}
		}
	}
	return brokers
}

// CompanyBrokerIDs returns the ids of brokers whose company name equals the
// actor's. It feeds the tier-2 application visibility predicate.
func CompanyBrokerIDs(actor User, users []User) map[string]bool {
	ids := make(map[string]bool)
	for _, u := range users {
		if u.Role == RoleBroker && u.Company() == actor.Company() {
			ids[u.ID] = true
		}
	}
	return ids
}
