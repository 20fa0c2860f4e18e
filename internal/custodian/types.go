package custodian

// HoldingKind distinguishes unique collectibles from fungible holdings.
type HoldingKind string

const (
	// KindUnique is an individually identified collectible. Unique holdings
	// are never eligible for point conversion.
	KindUnique HoldingKind = "unique"

	// KindFungible is a holding convertible into the point balance.
	KindFungible HoldingKind = "fungible"
)

// Holding is one asset held by a delegated account.
type Holding struct {
	ID     string      `json:"id"`
	Kind   HoldingKind `json:"kind"`
	Title  string      `json:"title"`
	Slug   string      `json:"slug,omitempty"`
	Number int         `json:"number,omitempty"`
	Model  string      `json:"model,omitempty"`
}
