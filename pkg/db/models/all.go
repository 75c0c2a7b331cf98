package models

// All lists every persisted model, in dependency order. Used by sqlite
// development mode and repository tests.
func All() []any {
	return []any{
		&Company{},
		&User{},
		&Attribute{},
		&AttributeValue{},
		&Product{},
		&ProductAttribute{},
		&SKU{},
		&Inquiry{},
		&InquiryItem{},
		&InquiryMessage{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Shipping{},
		&Notification{},
		&SystemSetting{},
		&ExchangeRate{},
	}
}
