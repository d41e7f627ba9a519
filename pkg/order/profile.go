package order

// Address is a postal address.
type Address struct {
	CountryCode        string `json:"country_code" yaml:"country_code"`
	AdministrativeArea string `json:"administrative_area,omitempty" yaml:"administrative_area"`
	Locality           string `json:"locality,omitempty" yaml:"locality"`
	PostalCode         string `json:"postal_code,omitempty" yaml:"postal_code"`
	AddressLine1       string `json:"address_line1,omitempty" yaml:"address_line1"`
	GivenName          string `json:"given_name,omitempty" yaml:"given_name"`
	FamilyName         string `json:"family_name,omitempty" yaml:"family_name"`
}

// Profile is a customer profile holding a shipping or billing address.
type Profile struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	OwnerID string            `json:"owner_id,omitempty"`
	Address Address           `json:"address"`
	Fields  map[string]string `json:"fields,omitempty"`
}
