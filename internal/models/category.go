package models

// Category is a transaction category from the lookup table.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Color       string `json:"color" yaml:"color"`
	Icon        string `json:"icon" yaml:"icon"`
	IsDefault   bool   `json:"is_default" yaml:"is_default"`
}

// CategoryConfig is one entry of the ordered keyword table. Examples are
// sample descriptions quoted to the external classifier.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Examples []string `yaml:"examples,omitempty"`
}

// CreditCard is a user's card; its institution drives mapping resolution.
type CreditCard struct {
	ID          string `json:"id" yaml:"id"`
	UserID      string `json:"user_id" yaml:"user_id"`
	Name        string `json:"name" yaml:"name"`
	Institution string `json:"institution" yaml:"institution"`
	Brand       string `json:"brand" yaml:"brand"`
	LastDigits  string `json:"last_digits,omitempty" yaml:"last_digits,omitempty"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`
}
