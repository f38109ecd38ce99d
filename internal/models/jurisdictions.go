package models

// Jurisdiction is a US state or DC with the centroid used to place markers on the map.
type Jurisdiction struct {
	Name      string
	Abbr      string
	Longitude float64
	Latitude  float64
}

var jurisdictions = []Jurisdiction{
	{Name: "Alabama", Abbr: "AL", Longitude: -86.9023, Latitude: 32.8067},
	{Name: "Alaska", Abbr: "AK", Longitude: -153.4937, Latitude: 64.2008},
	{Name: "Arizona", Abbr: "AZ", Longitude: -111.4312, Latitude: 34.0489},
	{Name: "Arkansas", Abbr: "AR", Longitude: -92.3731, Latitude: 34.7465},
	{Name: "California", Abbr: "CA", Longitude: -119.4179, Latitude: 36.7783},
	{Name: "Colorado", Abbr: "CO", Longitude: -105.3111, Latitude: 39.0598},
	{Name: "Connecticut", Abbr: "CT", Longitude: -72.7554, Latitude: 41.5978},
	{Name: "Delaware", Abbr: "DE", Longitude: -75.5071, Latitude: 38.9108},
	{Name: "Florida", Abbr: "FL", Longitude: -81.5158, Latitude: 27.6648},
	{Name: "Georgia", Abbr: "GA", Longitude: -83.5002, Latitude: 32.1656},
	{Name: "Hawaii", Abbr: "HI", Longitude: -155.5828, Latitude: 19.8968},
	{Name: "Idaho", Abbr: "ID", Longitude: -114.7420, Latitude: 44.0682},
	{Name: "Illinois", Abbr: "IL", Longitude: -89.3985, Latitude: 40.6331},
	{Name: "Indiana", Abbr: "IN", Longitude: -86.1349, Latitude: 40.2672},
	{Name: "Iowa", Abbr: "IA", Longitude: -93.0977, Latitude: 41.8780},
	{Name: "Kansas", Abbr: "KS", Longitude: -98.4842, Latitude: 39.0119},
	{Name: "Kentucky", Abbr: "KY", Longitude: -84.2700, Latitude: 37.8393},
	{Name: "Louisiana", Abbr: "LA", Longitude: -91.9623, Latitude: 30.9843},
	{Name: "Maine", Abbr: "ME", Longitude: -69.4455, Latitude: 45.2538},
	{Name: "Maryland", Abbr: "MD", Longitude: -76.6413, Latitude: 39.0458},
	{Name: "Massachusetts", Abbr: "MA", Longitude: -71.5314, Latitude: 42.4072},
	{Name: "Michigan", Abbr: "MI", Longitude: -85.6024, Latitude: 44.3148},
	{Name: "Minnesota", Abbr: "MN", Longitude: -94.6859, Latitude: 46.7296},
	{Name: "Mississippi", Abbr: "MS", Longitude: -89.3985, Latitude: 32.3547},
	{Name: "Missouri", Abbr: "MO", Longitude: -91.8318, Latitude: 37.9643},
	{Name: "Montana", Abbr: "MT", Longitude: -110.3626, Latitude: 46.8797},
	{Name: "Nebraska", Abbr: "NE", Longitude: -99.9018, Latitude: 41.4925},
	{Name: "Nevada", Abbr: "NV", Longitude: -116.4194, Latitude: 38.8026},
	{Name: "New Hampshire", Abbr: "NH", Longitude: -71.5724, Latitude: 43.1939},
	{Name: "New Jersey", Abbr: "NJ", Longitude: -74.4057, Latitude: 40.0583},
	{Name: "New Mexico", Abbr: "NM", Longitude: -105.8701, Latitude: 34.5199},
	{Name: "New York", Abbr: "NY", Longitude: -75.4999, Latitude: 43.2994},
	{Name: "North Carolina", Abbr: "NC", Longitude: -79.0193, Latitude: 35.7596},
	{Name: "North Dakota", Abbr: "ND", Longitude: -101.0020, Latitude: 47.5515},
	{Name: "Ohio", Abbr: "OH", Longitude: -82.9071, Latitude: 40.4173},
	{Name: "Oklahoma", Abbr: "OK", Longitude: -97.0929, Latitude: 35.0078},
	{Name: "Oregon", Abbr: "OR", Longitude: -120.5542, Latitude: 43.8041},
	{Name: "Pennsylvania", Abbr: "PA", Longitude: -77.1945, Latitude: 41.2033},
	{Name: "Rhode Island", Abbr: "RI", Longitude: -71.4774, Latitude: 41.5801},
	{Name: "South Carolina", Abbr: "SC", Longitude: -81.1637, Latitude: 33.8361},
	{Name: "South Dakota", Abbr: "SD", Longitude: -99.9018, Latitude: 43.9695},
	{Name: "Tennessee", Abbr: "TN", Longitude: -86.5804, Latitude: 35.5175},
	{Name: "Texas", Abbr: "TX", Longitude: -99.9018, Latitude: 31.9686},
	{Name: "Utah", Abbr: "UT", Longitude: -111.0937, Latitude: 39.3210},
	{Name: "Vermont", Abbr: "VT", Longitude: -72.5778, Latitude: 44.5588},
	{Name: "Virginia", Abbr: "VA", Longitude: -78.6569, Latitude: 37.4316},
	{Name: "Washington", Abbr: "WA", Longitude: -120.7401, Latitude: 47.7511},
	{Name: "West Virginia", Abbr: "WV", Longitude: -80.4549, Latitude: 38.5976},
	{Name: "Wisconsin", Abbr: "WI", Longitude: -89.6165, Latitude: 43.7844},
	{Name: "Wyoming", Abbr: "WY", Longitude: -107.2903, Latitude: 43.0759},
	{Name: "District of Columbia", Abbr: "DC", Longitude: -77.0369, Latitude: 38.9072},
}

var (
	jurisdictionsByName = make(map[string]Jurisdiction, len(jurisdictions))
	jurisdictionsByAbbr = make(map[string]Jurisdiction, len(jurisdictions))
)

func init() {
	for _, j := range jurisdictions {
		jurisdictionsByName[j.Name] = j
		jurisdictionsByAbbr[j.Abbr] = j
	}
}

// LookupJurisdiction finds a jurisdiction by its full name, e.g. "New York", or its abbreviation, e.g. "NY".
//
// Events naming an unknown jurisdiction are kept; they just cannot be placed on the map.
func LookupJurisdiction(name string) (Jurisdiction, bool) {
	if j, ok := jurisdictionsByName[name]; ok {
		return j, true
	}
	j, ok := jurisdictionsByAbbr[name]
	return j, ok
}

// Jurisdictions returns all known jurisdictions in alphabetical order with DC last.
func Jurisdictions() []Jurisdiction {
	return append([]Jurisdiction(nil), jurisdictions...)
}
