package core

// validation.go checks product fields before they reach the store.
//
// Create requires a name; Update only validates fields that were supplied.
// Uniqueness is not checked here because it needs the store.

import (
	"strconv"
	"strings"
)

// normalizeName trims surrounding whitespace from a product name.
func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// validateName returns the trimmed name or a ValidationError if it is empty.
func validateName(name string) (string, error) {
	n := normalizeName(name)
	if n == "" {
		return "", NewValidationError("name", "name is required")
	}
	return n, nil
}

// validateStock rejects negative quantities.
func validateStock(stock int64) error {
	if stock < 0 {
		return &ValidationError{
			Field:   "stock",
			Value:   strconv.FormatInt(stock, 10),
			Message: "stock must be >= 0",
		}
	}
	return nil
}

// buildNewProduct validates create input and returns the product to insert.
func buildNewProduct(f ProductFields) (Product, error) {
	if f.Name == nil {
		return Product{}, NewValidationError("name", "name is required")
	}
	name, err := validateName(*f.Name)
	if err != nil {
		return Product{}, err
	}

	p := Product{Name: name}
	if f.Stock != nil {
		if err := validateStock(*f.Stock); err != nil {
			return Product{}, err
		}
		p.Stock = *f.Stock
	}
	p.Unit = deref(f.Unit)
	p.Category = deref(f.Category)
	p.Brand = deref(f.Brand)
	p.Status = deref(f.Status)
	p.Image = nonEmpty(f.Image)
	return p, nil
}

// applyUpdate returns a copy of current with every supplied field of f applied.
func applyUpdate(current Product, f ProductFields) (Product, error) {
	next := current
	if f.Stock != nil {
		if err := validateStock(*f.Stock); err != nil {
			return Product{}, err
		}
		next.Stock = *f.Stock
	}
	if f.Name != nil {
		name, err := validateName(*f.Name)
		if err != nil {
			return Product{}, err
		}
		next.Name = name
	}
	if f.Unit != nil {
		next.Unit = *f.Unit
	}
	if f.Category != nil {
		next.Category = *f.Category
	}
	if f.Brand != nil {
		next.Brand = *f.Brand
	}
	if f.Status != nil {
		next.Status = *f.Status
	}
	if f.Image != nil {
		next.Image = nonEmpty(f.Image)
	}
	return next, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonEmpty maps nil and "" to nil so empty images are stored as NULL.
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
