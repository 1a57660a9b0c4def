package billing

// Interval selects which Stripe price of a plan to charge.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalAnnual  Interval = "annual"
)

// ContactURL is where enterprise enquiries go instead of checkout.
const ContactURL = "mailto:movidologistics@gmail.com?subject=Enterprise%20Plan%20Enquiry%20-%20Movido%20Logistics"

// Plan describes one tier of the subscription catalog. A nil Price marks a
// contact-sales tier with no self-serve checkout.
type Plan struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        *int     `json:"price"`
	Popular      bool     `json:"popular,omitempty"`
	PriceMonthly string   `json:"stripePriceMonthly,omitempty"`
	PriceAnnual  string   `json:"stripePriceAnnual,omitempty"`
	Features     []string `json:"features"`
}

// SelfServe reports whether the plan can be bought through checkout.
func (p Plan) SelfServe() bool {
	return p.Price != nil
}

// PriceFor returns the Stripe price ID for the given billing interval.
// Empty for contact-sales tiers.
func (p Plan) PriceFor(interval Interval) string {
	if interval == IntervalAnnual {
		return p.PriceAnnual
	}
	return p.PriceMonthly
}

func intPtr(v int) *int { return &v }

var plans = []Plan{
	{
		Name:         "Starter",
		Description:  "Perfect for small fleets getting started with digital dispatch",
		Price:        intPtr(19),
		PriceMonthly: "price_1T4QFJ0gB9FXYr87He7OG4q2",
		PriceAnnual:  "price_1T4QFL0gB9FXYr87umjzOVby",
		Features: []string{
			"Live Fleet Tracking & Map",
			"Basic Job Dispatch",
			"ETA Dashboard",
			"Driver Mobile App Access",
			"Email Support",
		},
	},
	{
		Name:         "Professional",
		Description:  "Advanced tools for growing logistics operations",
		Price:        intPtr(35),
		Popular:      true,
		PriceMonthly: "price_1T4QFN0gB9FXYr87EWm1IP4e",
		PriceAnnual:  "price_1T4QFP0gB9FXYr87xoe5Q76D",
		Features: []string{
			"Everything in Starter, plus:",
			"AI Route Optimizer with TomTom Navigation",
			"Low Bridge Alerts & Vehicle Constraints (3.5t - 44t)",
			"Digital POD (Proof of Delivery)",
			"One-tap Driver Check-in",
			"Predictive ETA with Traffic",
			"Priority Support",
		},
	},
	{
		Name:        "Enterprise",
		Description: "Custom solutions for large-scale fleet operations",
		Features: []string{
			"Everything in Professional, plus:",
			"Customer Tracking Portal",
			"Advanced Fuel & Cost Analytics",
			"24/7 Technical Support",
			"Unlimited Route History",
			"Custom Integrations",
			"Dedicated Account Manager",
		},
	},
}

// Plans returns the subscription catalog. Callers must not mutate the result.
func Plans() []Plan {
	return plans
}

// PlanByName looks a plan up by its display name.
func PlanByName(name string) (Plan, bool) {
	for _, p := range plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}
