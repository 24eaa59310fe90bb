package wash

// Status representations vary by how the record was read. Each entry is one
// accepted token for the terminal shipped state.
var (
	shippedStatusValues = map[string]struct{}{
		"ItemShip:C": {},
		"shipped":    {},
		"C":          {},
	}
	shippedStatusTexts = map[string]struct{}{
		"Shipped": {},
	}
)

// IsShipped reports whether the header is in the terminal shipped state.
func IsShipped(h FulfillmentHeader) bool {
	if _, ok := shippedStatusValues[h.StatusValue]; ok {
		return true
	}
	_, ok := shippedStatusTexts[h.StatusText]
	return ok
}

// pseudoItemTypes are line types that never carry stock.
var pseudoItemTypes = map[string]struct{}{
	"Description": {},
	"Subtotal":    {},
	"Discount":    {},
	"Markup":      {},
	"Group":       {},
	"EndGroup":    {},
	"Payment":     {},
}

func isPseudoItem(itemType string) bool {
	_, ok := pseudoItemTypes[itemType]
	return ok
}
