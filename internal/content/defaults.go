package content

import "time"

// DefaultTeams is the team list written on a version reset.
func DefaultTeams() []Team {
	return []Team{
		{ID: "t1", Name: "Service Champs", Color: "#E31E24", IconName: "MessageCircle", Description: "Chat Support Team"},
		{ID: "t2", Name: "Live Ops", Color: "#F59E0B", IconName: "Activity", Description: "Real-time Operations"},
		{ID: "t3", Name: "WhatsApp", Color: "#25D366", IconName: "Phone", Description: "Social Support"},
		{ID: "t4", Name: "Fleet Empire", Color: "#3B82F6", IconName: "Bike", Description: "Riders & Logistics"},
	}
}

// DefaultArticles is the article list written on a version reset.
func DefaultArticles(now time.Time) []Article {
	stamp := now.UnixMilli()
	return []Article{
		{
			ID:          "a1",
			TeamIDs:     []string{"t1"},
			Title:       "Refund Policy: Missing Items",
			Summary:     "SOP for handling customer complaints regarding missing items in their order. This policy ensures fair compensation while minimizing fraud risk.",
			Trigger:     "Customer contacts support claiming an item is missing from their delivered order.",
			ShortAnswer: "Verify items with restaurant. If confirmed missing, refund item value + 10% wallet credit.",
			ProcessSteps: []ProcessStep{
				{Title: "Verify Package Integrity", Description: "Ask customer for photo proof if the package seal was broken upon arrival. Check if the rider reported any damage."},
				{Title: "Contact Restaurant", Description: "Call the restaurant partner via the dedicated support line. Do not use the general customer number."},
				{Title: "Dispatcher Confirmation", Description: "Ask the restaurant dispatcher to check their packing logs. Confirm specifically if the item was marked as packed."},
				{Title: "Process Compensation", Description: "If the restaurant admits the mistake, process a partial refund for the exact value of the missing item. Add 10% of that item's value as wallet credit."},
				{Title: "Log Incident", Description: `Log the ticket in Salesforce as "Vendor Error" so the restaurant is billed for the refund.`},
			},
			Outcomes: []Outcome{
				{Label: "Restaurant Admits Fault", Action: "Refund Item + 10% Credit. Log as Vendor Error."},
				{Label: "Restaurant Denies Fault", Action: `If customer is trusted (Tier 1), refund as "Goodwill". Otherwise, deny claim.`},
			},
			Attachments:       []Attachment{},
			IsVisibleToAgents: true,
			IsAvailableToAI:   true,
			Status:            StatusPublished,
			LastUpdated:       stamp,
		},
		{
			ID:          "a2",
			TeamIDs:     []string{"t4"},
			Title:       "Rider Accident Protocol",
			Summary:     "Emergency procedures for when a rider is involved in a road accident while on an active order.",
			Trigger:     "Rider reports an accident via app or phone, or Fleet Manager receives an SOS alert.",
			ShortAnswer: "Ensure safety first. Call emergency services if needed. Reassign order immediately.",
			ProcessSteps: []ProcessStep{
				{Title: "Safety Check", Description: `Immediately ask the rider: "Are you safe? Do you need an ambulance?" Do not ask about the order yet.`},
				{Title: "Emergency Services", Description: "If medical help is needed, call 123 (Ambulance) immediately and provide the rider's GPS location."},
				{Title: "Update Status", Description: `Mark the rider status in the dashboard as "Unavailable/Emergency" to stop new orders.`},
				{Title: "Order Reassignment", Description: `Reassign the active order to the nearest available rider using the Dispatch Tool "Force Assign" feature.`},
				{Title: "Customer Communication", Description: `Inform the customer of a delay due to "unforeseen traffic circumstances". Never share accident details with the customer.`},
			},
			Outcomes: []Outcome{
				{Label: "Minor Accident (Rider OK)", Action: "Rider takes break. Order reassigned. No report needed."},
				{Label: "Major Accident (Injury)", Action: "Trigger Insurance Protocol. File Incident Report #99."},
			},
			Attachments:       []Attachment{},
			IsVisibleToAgents: true,
			IsAvailableToAI:   true,
			Status:            StatusPublished,
			LastUpdated:       stamp,
		},
	}
}
