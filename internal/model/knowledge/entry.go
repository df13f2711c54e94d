package knowledge

// Entry is one canned answer of the assistant. Every keyword must appear in a
// query for the entry to match exactly.
type Entry struct {
	ID       string   `json:"id"`
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
	Response string   `json:"response"`
}

// Seed returns the built-in knowledge base in definition order. Order is the
// tie-break rule of the matcher, so new entries go where they should rank.
func Seed() []Entry {
	return []Entry{
		{
			ID:       "lead-kenya",
			Topic:    "compliance",
			Keywords: []string{"lead", "0.3", "legal", "kenya"},
			Response: "No. 0.3 ppm of lead violates KEBS KS EAS 12 drinking water limits (0.01 ppm). " +
				"The sample is 30 times over the legal maximum: stop distribution, notify the county water officer " +
				"and flush service lines before re-testing.",
		},
		{
			ID:       "chlorine-residual",
			Topic:    "treatment",
			Keywords: []string{"chlorine", "treatment"},
			Response: "Keep free chlorine residual between 0.2 and 0.5 mg/L at the point of delivery. " +
				"Below 0.2 mg/L increase the dose at the contact tank; above 0.5 mg/L customers will notice taste and odour.",
		},
		{
			ID:       "arsenic-limit",
			Topic:    "contaminants",
			Keywords: []string{"arsenic", "limit"},
			Response: "The WHO guideline for arsenic is 0.01 mg/L. Readings above it require an alternative source " +
				"or adsorptive media treatment; boiling does not remove arsenic.",
		},
		{
			ID:       "coliform-bacteria",
			Topic:    "microbiology",
			Keywords: []string{"coliform", "bacteria"},
			Response: "Any E. coli or thermotolerant coliform detection in a 100 mL sample means the water is unsafe. " +
				"Issue a boil-water advisory, shock-chlorinate the affected zone and resample within 24 hours.",
		},
		{
			ID:       "nitrate-runoff",
			Topic:    "contaminants",
			Keywords: []string{"nitrate", "runoff"},
			Response: "Nitrate above 50 mg/L is a risk for infants. Agricultural runoff peaks after heavy rain, " +
				"so increase sampling frequency at intakes downstream of farmland during the wet season.",
		},
		{
			ID:       "turbidity-ntu",
			Topic:    "treatment",
			Keywords: []string{"turbidity", "ntu"},
			Response: "Treated water should stay below 1 NTU, ideally under 0.3 NTU after filtration. " +
				"Rising turbidity shields pathogens from disinfection: check coagulant dosing and filter backwash cycles.",
		},
		{
			ID:       "acidity-corrosion",
			Topic:    "chemistry",
			Keywords: []string{"acidity", "corrosion"},
			Response: "Acidic water below pH 6.5 corrodes pipes and leaches lead and copper. " +
				"Raise the pH to 7.0-8.5 with lime or soda ash dosing before distribution.",
		},
		{
			ID:       "fluoride-dental",
			Topic:    "contaminants",
			Keywords: []string{"fluoride", "dental"},
			Response: "Fluoride above 1.5 mg/L causes dental fluorosis, common in Rift Valley boreholes. " +
				"Bone char or activated alumina filters bring it back within limits.",
		},
		{
			ID:       "compliance-report",
			Topic:    "compliance",
			Keywords: []string{"compliance", "report"},
			Response: "Compliance reports list every parameter against its regulatory limit for the selected period. " +
				"Generate one from the Reports tab; violations are highlighted and grouped by sampling point.",
		},
		{
			ID:       "sensor-calibration",
			Topic:    "operations",
			Keywords: []string{"sensor", "calibration"},
			Response: "Calibrate pH and conductivity probes weekly and turbidity sensors monthly using certified standards. " +
				"Drifting readings between calibrations usually mean biofouling on the probe.",
		},
		{
			ID:       "boil-advisory",
			Topic:    "public-health",
			Keywords: []string{"boil", "advisory"},
			Response: "A boil-water advisory tells consumers to bring water to a rolling boil for one minute before drinking. " +
				"Lift it only after two consecutive clean microbiological samples.",
		},
		{
			ID:       "microplastic-filtration",
			Topic:    "treatment",
			Keywords: []string{"microplastic", "filtration"},
			Response: "Conventional sand filtration removes most microplastics above 20 micrometres; " +
				"membrane filtration is needed for smaller particles.",
		},
	}
}
