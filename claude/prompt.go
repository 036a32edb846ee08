package claude

import "strings"

const flightInstructions = `
You are a travel data extraction expert. Extract flight booking information from the following text and return it as a JSON object with exactly these fields:

Required JSON format:
{
    "origin_airport": "string (IATA code preferred, e.g., 'JFK' or city name if IATA not available)",
    "destination_airport": "string (IATA code preferred, e.g., 'CDG' or city name if IATA not available)",
    "duration": "integer (total flight time in minutes, calculate from hours/minutes if needed)",
    "total_cost": "float (total cost as decimal number, extract numeric value only)",
    "total_cost_per_person": "float (cost per person as decimal, same as total_cost if single passenger)",
    "segment": "integer (number of flight segments/stops, 1 for direct flight)",
    "flight_number": "string (primary flight number, e.g., 'AF123' or 'Multiple' if multiple flights)"
}

Instructions:
- Extract only the information that is clearly present in the text
- For missing data, use these defaults: origin_airport="Unknown", destination_airport="Unknown", duration=0, total_cost=0.0, total_cost_per_person=0.0, segment=1, flight_number="Unknown"
- Convert duration to minutes (e.g., "2h 30m" = 150 minutes)
- Extract numeric values only for costs (remove currency symbols)
- For multi-segment flights, count the number of flights/stops
- Return only valid JSON, no additional text or explanation
`

const lodgingInstructions = `
You are a travel data extraction expert. Extract lodging booking information from the following text and return it as a JSON object with exactly these fields:

Required JSON format:
{
    "name": "string (hotel/property name)",
    "location": "string (city, country or full address)",
    "number_of_guests": "integer (number of guests)",
    "total_cost": "float (total cost as decimal number)",
    "total_cost_per_person": "integer (cost per person as integer)",
    "number_of_nights": "integer (number of nights)",
    "check_in": "string (ISO format date: YYYY-MM-DD)",
    "check_out": "string (ISO format date: YYYY-MM-DD)"
}

Instructions:
- Extract only the information that is clearly present in the text
- For missing data, use these defaults: name="Unknown", location="Unknown", number_of_guests=1, total_cost=0.0, total_cost_per_person=0, number_of_nights=1, check_in="1970-01-01", check_out="1970-01-02"
- Convert dates to ISO format (YYYY-MM-DD)
- Extract numeric values only for costs (remove currency symbols)
- Calculate number_of_nights from check-in/check-out dates if not explicitly stated
- Calculate total_cost_per_person by dividing total_cost by number_of_guests (round to integer)
- Return only valid JSON, no additional text or explanation
`

// FlightPrompt returns the extraction prompt for a flight page.
func FlightPrompt(text string) string {
	return buildPrompt(flightInstructions, text)
}

// LodgingPrompt returns the extraction prompt for a lodging page.
func LodgingPrompt(text string) string {
	return buildPrompt(lodgingInstructions, text)
}

func buildPrompt(instructions, text string) string {
	var b strings.Builder
	b.Grow(len(instructions) + len(text) + 32)
	b.WriteString(instructions)
	b.WriteString("\nText to analyze:\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}
