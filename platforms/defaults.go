package platforms

import "github.com/briangreenhill/tripparse/travel"

var (
	flightOnly  = []travel.DataType{travel.KindFlight}
	lodgingOnly = []travel.DataType{travel.KindLodging}
	both        = []travel.DataType{travel.KindFlight, travel.KindLodging}
)

// Default returns a registry with the flight and lodging sites we support.
func Default() *Registry {
	r := NewRegistry()

	r.Register(Platform{
		Name:    "google",
		Domains: []string{"flights.google.com", "google.com"},
		Kinds:   flightOnly,
		ContentSelectors: []string{
			"[data-ved]", ".gws-flights__booking-card",
			".gws-flights__itinerary", ".gws-flights__price",
		},
		NoiseSelectors: []string{".gws-flights__ads", ".gws-flights__footer"},
	})
	r.Register(Platform{
		Name:    "airbnb",
		Domains: []string{"airbnb.com"},
		Kinds:   lodgingOnly,
		ContentSelectors: []string{
			`[data-testid="listing-details"]`,
			`[data-testid="price-breakdown"]`,
			".listing-summary", ".booking-form",
		},
		NoiseSelectors: []string{".navigation", ".footer", ".reviews-section"},
	})
	r.Register(Platform{
		Name:    "booking",
		Domains: []string{"booking.com"},
		Kinds:   lodgingOnly,
		ContentSelectors: []string{
			".hp__hotel-title", ".prco-valign-middle-helper",
			".bui-price-display", ".c-accommodation-header",
		},
		NoiseSelectors: []string{".bui-header", ".bui-footer", ".sr-usp-overlay"},
	})
	r.Register(Platform{
		Name:    "hotels",
		Domains: []string{"hotels.com"},
		Kinds:   lodgingOnly,
		ContentSelectors: []string{
			".hotel-name", ".price-current", ".room-rate-item", ".booking-summary",
		},
		NoiseSelectors: []string{".site-header", ".site-footer", ".advertisement"},
	})
	r.Register(Platform{Name: "expedia", Domains: []string{"expedia.com"}, Kinds: both})

	for _, name := range []string{
		"kayak", "priceline", "united", "delta", "american",
		"jetblue", "lufthansa", "airfrance", "klm", "british-airways",
	} {
		r.Register(Platform{Name: name, Domains: []string{name + ".com"}, Kinds: flightOnly})
	}
	for _, name := range []string{
		"marriott", "hilton", "hyatt", "ihg", "vrbo", "homeaway", "agoda", "trivago",
	} {
		r.Register(Platform{Name: name, Domains: []string{name + ".com"}, Kinds: lodgingOnly})
	}

	return r
}
