package application

import "mortgageflow/profile"

// VisibleApplications narrows apps to the records the actor may see.
// Priority order, first match wins:
//
//  1. viewedBroker set: an elevated actor drilling into a specific broker's
//     book sees exactly that broker's applications.
//  2. admin: everything, unfiltered.
//  3. team manager / broker admin: applications owned by brokers whose company
//     name equals the actor's (empty matches empty).
//  4. everyone else: applications where brokerId equals the actor's id.
//
// The filter only narrows. No search or sort applied afterwards can expose a
// record excluded here.
func VisibleApplications(actor profile.User, apps []Application, users []profile.User, viewedBroker *profile.User) []Application {
	if viewedBroker != nil {
		return filterByBroker(apps, func(brokerID string) bool {
			return brokerID == viewedBroker.ID
		})
	}

	switch actor.Tier() {
	case profile.TierAdmin:
		out := make([]Application, len(apps))
		copy(out, apps)
		return out
	case profile.TierCompany:
		companyIDs := profile.CompanyBrokerIDs(actor, users)
		return filterByBroker(apps, func(brokerID string) bool {
			return companyIDs[brokerID]
		})
	default:
		return filterByBroker(apps, func(brokerID string) bool {
			return brokerID == actor.ID
		})
	}
}

func filterByBroker(apps []Application, keep func(brokerID string) bool) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		if keep(app.BrokerID) {
			out = append(out, app)
		}
	}
	return out
}
