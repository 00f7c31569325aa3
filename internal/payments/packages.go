// Package payments handles credit top-ups: fixed star packages and
// crypto invoices created through an external payment provider.
package payments

// Package is a fixed top-up bundle priced in stars.
type Package struct {
	Credits int64 `json:"credits"`
	Stars   int64 `json:"stars"`
}

// Packages lists the available top-up bundles, cheapest first.
func Packages() []Package {
	return []Package{
		{Credits: 10, Stars: 1},
		{Credits: 200, Stars: 90},
		{Credits: 300, Stars: 130},
	}
}

// FindPackage returns the package with the given credit amount, or nil.
func FindPackage(credits int64) *Package {
	for _, p := range Packages() {
		if p.Credits == credits {
			return &p
		}
	}
	return nil
}
