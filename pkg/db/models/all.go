package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Vendor{},
		&Product{},
		&ProductAttribute{},
		&Review{},
		&Cart{},
		&CartItem{},
		&Image{},
		&PushSubscription{},
	}
}
